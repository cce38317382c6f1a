// cmd/sessions prints the persisted session table, using the same SNAPSHOT_* settings
// as the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gofish/internal/cache"
	"github.com/jason-s-yu/gofish/internal/config"
	"github.com/jason-s-yu/gofish/internal/database"
	"github.com/jason-s-yu/gofish/internal/models"
	"github.com/jason-s-yu/gofish/internal/snapshot"
	_ "github.com/joho/godotenv/autoload"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"
)

func main() {
	detail := flag.String("id", "", "show hands and sets for one session")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		pterm.Fatal.Printfln("invalid configuration: %v", err)
	}
	ctx := context.Background()

	table, err := load(ctx, cfg)
	if err != nil {
		pterm.Fatal.Printfln("%v", err)
	}

	if *detail != "" {
		id, err := uuid.Parse(*detail)
		if err != nil {
			pterm.Fatal.Printfln("invalid session id: %v", err)
		}
		s, ok := table[id]
		if !ok {
			pterm.Error.Printfln("session %s not found", id)
			os.Exit(1)
		}
		printSession(s)
		return
	}

	if len(table) == 0 {
		pterm.Info.Println("no sessions persisted")
		return
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(tableData(table)).Render(); err != nil {
		pterm.Fatal.Printfln("render: %v", err)
	}
}

func load(ctx context.Context, cfg *config.Config) (snapshot.Table, error) {
	var backend snapshot.Backend
	switch cfg.SnapshotBackend {
	case config.BackendFile:
		b, err := snapshot.NewFileBackend(cfg.SnapshotPath)
		if err != nil {
			return nil, err
		}
		backend = b
	case config.BackendSQLite:
		b, err := snapshot.NewSQLiteBackend(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		backend = b
	case config.BackendRedis:
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		defer rdb.Close()
		backend = snapshot.NewRedisBackend(rdb, cfg.SnapshotKey)
	case config.BackendPostgres:
		pool, err := database.ConnectDB(ctx, cfg.PostgresDSN(), quietLogger())
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		b, err := snapshot.NewPostgresBackend(ctx, pool)
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		return nil, fmt.Errorf("snapshot backend %q has nothing to inspect", cfg.SnapshotBackend)
	}
	defer backend.Close()
	return backend.Load(ctx)
}

// quietLogger keeps connection chatter out of the table output.
func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

// tableData renders one row per session, most advanced games first.
func tableData(table snapshot.Table) pterm.TableData {
	sessions := make([]*models.Session, 0, len(table))
	for _, s := range table {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if a, b := sessions[i].TotalSets(), sessions[j].TotalSets(); a != b {
			return a > b
		}
		return sessions[i].ID.String() < sessions[j].ID.String()
	})

	data := pterm.TableData{{"Session", "Phase", "Players", "Turn", "Sets", "Remaining", "Winner"}}
	for _, s := range sessions {
		names := make([]string, len(s.Players))
		for i, p := range s.Players {
			names[i] = p.DisplayName()
		}
		data = append(data, []string{
			s.ID.String(),
			string(s.Phase()),
			strings.Join(names, ", "),
			playerName(s, s.Turn),
			strconv.Itoa(s.TotalSets()),
			strconv.Itoa(s.Remaining),
			playerName(s, s.Winner),
		})
	}
	return data
}

func playerName(s *models.Session, id string) string {
	if p := s.Player(id); p != nil {
		return p.DisplayName()
	}
	return "-"
}

func printSession(s *models.Session) {
	panels := make([]pterm.Panel, 0, len(s.Players))
	for _, p := range s.Players {
		var b strings.Builder
		ranks := make([]string, len(p.Hand))
		for i, c := range p.Hand {
			ranks[i] = c.Rank
		}
		fmt.Fprintf(&b, "Hand: %s\n", strings.Join(ranks, " "))
		sets := make([]string, len(p.Sets))
		for i, set := range p.Sets {
			sets[i] = set[0].Rank
		}
		fmt.Fprintf(&b, "Sets: %s", strings.Join(sets, " "))
		title := p.DisplayName()
		if p.ID == s.Turn {
			title = pterm.LightGreen(title + " (turn)")
		}
		box := pterm.DefaultBox.WithHorizontalPadding(2).WithTitle(title).WithTitleTopCenter()
		panels = append(panels, pterm.Panel{Data: box.Sprint(b.String())})
	}
	pterm.DefaultSection.Println(fmt.Sprintf("%s  %s  remaining %d", s.ID, s.Phase(), s.Remaining))
	if err := pterm.DefaultPanel.WithPanels([][]pterm.Panel{panels}).Render(); err != nil {
		pterm.Error.Printfln("render: %v", err)
	}
}
