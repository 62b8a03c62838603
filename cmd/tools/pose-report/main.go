// Command pose-report renders an HTML timeline of locked-pose events from
// the installation's event log. Each point is one lock: X is time, Y is the
// person slot, and color is the pose label.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/lumenfield/mirrorwall/internal/posedb"
)

var (
	dbFile = flag.String("db", "pose_events.db", "Event log sqlite file")
	out    = flag.String("out", "pose_report.html", "Output HTML file")
	since  = flag.Duration("since", 24*time.Hour, "Report window, counted back from now")
)

func main() {
	flag.Parse()

	db, err := posedb.Open(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open event database: %v", err)
	}
	defer db.Close()

	to := time.Now()
	from := to.Add(-*since)
	events, err := db.EventsBetween(from, to)
	if err != nil {
		log.Fatalf("Failed to query events: %v", err)
	}
	if len(events) == 0 {
		log.Fatalf("No events between %s and %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	// One series per label so the legend doubles as a pose filter.
	byLabel := make(map[string][]opts.ScatterData)
	maxSlot := 0
	for _, ev := range events {
		label := string(ev.Label)
		byLabel[label] = append(byLabel[label], opts.ScatterData{
			Value: []interface{}{ev.LockedAt.Format("2006-01-02 15:04:05"), ev.SlotID},
		})
		if ev.SlotID > maxSlot {
			maxSlot = ev.SlotID
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Pose Lock Timeline",
			Theme:     "dark",
			Width:     "1200px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Pose Lock Timeline",
			Subtitle: fmt.Sprintf("%d events, %s to %s", len(events), from.Format(time.RFC3339), to.Format(time.RFC3339)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "time", Name: "time"}),
		charts.WithYAxisOpts(opts.YAxis{Min: -1, Max: maxSlot + 1, Name: "slot"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	for label, data := range byLabel {
		scatter.AddSeries(label, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()
	if err := scatter.Render(f); err != nil {
		log.Fatalf("Failed to render chart: %v", err)
	}
	log.Printf("Wrote %s (%d events)", *out, len(events))
}
