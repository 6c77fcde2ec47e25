package results

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"combat-mc/internal/engine"
	"combat-mc/internal/montecarlo"
)

const defaultGreptimePort = 4001

// greptimeClient is the subset of the ingester client used by the writer.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes trial summaries and engagement events to GreptimeDB.
// Engagement rows are timestamped at batch start plus the event's simulated time so a batch
// can be browsed on a time axis.
type GreptimeDBWriter struct {
	client          greptimeClient
	trialTable      string
	engagementTable string

	mu      sync.Mutex
	batch   string
	started time.Time
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port").
func NewGreptimeDBWriter(endpoint, database, trialTable, engagementTable string) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	return &GreptimeDBWriter{
		client:          client,
		trialTable:      trialTable,
		engagementTable: engagementTable,
		started:         time.Now().UTC(),
	}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		// No port given.
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid greptime port %q: %w", portStr, err)
	}
	return host, port, nil
}

// BeginBatch sets the batch id tag and time origin of following rows.
func (w *GreptimeDBWriter) BeginBatch(id string, started time.Time, _ int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batch = id
	w.started = started.UTC()
}

// WriteTrial inserts a single trial.
func (w *GreptimeDBWriter) WriteTrial(r montecarlo.TrialResult) error {
	return w.WriteTrials([]montecarlo.TrialResult{r})
}

// WriteTrials inserts trial summaries and their engagement events.
func (w *GreptimeDBWriter) WriteTrials(rs []montecarlo.TrialResult) error {
	if len(rs) == 0 {
		return nil
	}
	w.mu.Lock()
	batch, started := w.batch, w.started
	w.mu.Unlock()

	trials, err := w.trialRows(batch, started, rs)
	if err != nil {
		return err
	}
	tables := []*table.Table{trials}
	events, err := w.engagementRows(batch, started, rs)
	if err != nil {
		return err
	}
	if events != nil {
		tables = append(tables, events)
	}
	if _, err := w.client.Write(context.Background(), tables...); err != nil {
		return fmt.Errorf("greptime write: %w", err)
	}
	return nil
}

func (w *GreptimeDBWriter) trialRows(batch string, started time.Time, rs []montecarlo.TrialResult) (*table.Table, error) {
	tbl, err := table.New(w.trialTable)
	if err != nil {
		return nil, err
	}
	tbl.AddTagColumn("batch_id", types.STRING)
	tbl.AddTagColumn("run_index", types.INT64)
	tbl.AddFieldColumn("seed", types.INT64)
	tbl.AddFieldColumn("sim_time_final", types.FLOAT64)
	tbl.AddFieldColumn("engagements", types.INT64)
	tbl.AddFieldColumn("kills", types.INT64)
	tbl.AddFieldColumn("blue_alive", types.INT64)
	tbl.AddFieldColumn("red_alive", types.INT64)
	tbl.AddFieldColumn("failed", types.BOOLEAN)
	tbl.AddFieldColumn("error", types.STRING)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, r := range rs {
		kills := 0
		for _, ev := range r.EngagementLog {
			if ev.Result == engine.ResultKill {
				kills++
			}
		}
		alive := map[string]int64{}
		for _, s := range r.EntitySurvival {
			if s.Alive {
				alive[s.Team]++
			}
		}
		errMsg := ""
		if r.Error != nil {
			errMsg = r.Error.Error()
		}
		// Trials are spaced a millisecond apart so each gets its own row.
		ts := started.Add(time.Duration(r.RunIndex) * time.Millisecond)
		if err := tbl.AddRow(batch, int64(r.RunIndex), r.Seed, r.SimTimeFinal, int64(len(r.EngagementLog)), int64(kills),
			alive[engine.TeamBlue], alive[engine.TeamRed], r.Error != nil, errMsg, ts); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

func (w *GreptimeDBWriter) engagementRows(batch string, started time.Time, rs []montecarlo.TrialResult) (*table.Table, error) {
	n := 0
	for _, r := range rs {
		n += len(r.EngagementLog)
	}
	if n == 0 {
		return nil, nil
	}
	tbl, err := table.New(w.engagementTable)
	if err != nil {
		return nil, err
	}
	tbl.AddTagColumn("batch_id", types.STRING)
	tbl.AddTagColumn("run_index", types.INT64)
	tbl.AddTagColumn("source_id", types.STRING)
	tbl.AddTagColumn("target_id", types.STRING)
	tbl.AddTagColumn("result", types.STRING)
	tbl.AddFieldColumn("source_team", types.STRING)
	tbl.AddFieldColumn("weapon_type", types.STRING)
	tbl.AddFieldColumn("sim_time", types.FLOAT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, r := range rs {
		for _, ev := range r.EngagementLog {
			ts := started.Add(time.Duration(ev.Time * float64(time.Second)))
			if err := tbl.AddRow(batch, int64(r.RunIndex), ev.SourceID, ev.TargetID, ev.Result,
				ev.SourceTeam, ev.WeaponType, ev.Time, ts); err != nil {
				return nil, err
			}
		}
	}
	return tbl, nil
}
