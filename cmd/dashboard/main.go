package main

import (
	"flag"
	"log"

	"combat-mc/internal/dashboard"
)

func main() {
	out := flag.String("out", "build", "Directory for rendered dashboards")
	trials := flag.String("trial-table", dashboard.DefaultOptions.TrialTable, "GreptimeDB trial table")
	engagements := flag.String("engagement-table", dashboard.DefaultOptions.EngagementTable, "GreptimeDB engagement table")
	flag.Parse()

	opts := dashboard.Options{TrialTable: *trials, EngagementTable: *engagements}
	if err := dashboard.Render(*out, opts); err != nil {
		log.Fatal(err)
	}
}
