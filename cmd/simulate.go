package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skyfleet/skyfleet/app"
	"github.com/skyfleet/skyfleet/config"
	"github.com/skyfleet/skyfleet/core/dispatch"
	"github.com/skyfleet/skyfleet/core/events"
	"github.com/skyfleet/skyfleet/core/model"
	"github.com/skyfleet/skyfleet/infra/logger"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Dispatch test deliveries in-process and print the event streams",
	RunE:  runSimulate,
}

var (
	simCount   int
	simBatch   bool
	simTimeout time.Duration
	simQuiet   bool
)

func init() {
	simulateCmd.Flags().IntVarP(&simCount, "count", "n", 3, "number of deliveries")
	simulateCmd.Flags().BoolVar(&simBatch, "batch", false, "submit the deliveries as one batch")
	simulateCmd.Flags().DurationVar(&simTimeout, "timeout", 2*time.Minute, "give up after this long")
	simulateCmd.Flags().BoolVarP(&simQuiet, "quiet", "q", false, "only print delivery status events")
	rootCmd.AddCommand(simulateCmd)
}

// simEvent is one printed line.
type simEvent struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simCount <= 0 {
		return fmt.Errorf("count must be positive")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, simTimeout)
	defer cancel()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Configure(cfg.Logging); err != nil {
		return err
	}
	collab, err := app.BuildCollaborators(cfg)
	if err != nil {
		return err
	}

	bus := events.NewBroadcaster(cfg.Engine.EventBuffer)
	defer bus.Close()
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	engine, err := dispatch.NewEngine(cfg.Engine, collab.Fleet, collab.Planner, collab.Base,
		dispatch.WithPublisher(bus),
		dispatch.WithLogger(logger.New("dispatch")),
	)
	if err != nil {
		return err
	}
	defer engine.Close()

	base := engine.Base(ctx)
	reqs := simRequests(base, simCount)
	out := cmd.OutOrStdout()

	// pending holds the delivery ids, or the batch id, still awaiting a terminal status
	pending := map[string]bool{}
	if simBatch {
		res := engine.SubmitBatch(ctx, "", reqs)
		printEvent(out, "submission", res)
		if res.Accepted {
			pending[res.BatchID] = true
		}
	} else {
		for _, r := range reqs {
			res := engine.SubmitSingle(ctx, r)
			printEvent(out, "submission", res)
			if res.Accepted {
				pending[fmt.Sprint(res.DeliveryID)] = true
			}
		}
	}

	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("simulation stopped with %d mission(s) in flight: %w", len(pending), ctx.Err())
		case u := <-sub.Vehicles:
			if !simQuiet {
				printEvent(out, events.TopicVehicleUpdates, u)
			}
		case s := <-sub.States:
			if !simQuiet {
				printEvent(out, events.TopicSystemState, s)
			}
		case d := <-sub.Deliveries:
			printEvent(out, events.TopicDeliveryStatus, d)
			switch {
			case simBatch && d.DeliveryID == 0:
				delete(pending, d.BatchID)
			case !simBatch:
				delete(pending, fmt.Sprint(d.DeliveryID))
			}
		}
	}
	return nil
}

// simRequests spreads n deliveries around base with alternating cargo needs.
func simRequests(base model.Waypoint, n int) []model.DeliveryRequest {
	reqs := make([]model.DeliveryRequest, n)
	for i := range reqs {
		reqs[i] = model.DeliveryRequest{
			Longitude: base.Lng + 0.001*float64(i+1),
			Latitude:  base.Lat + 0.0005*float64(i%3),
			Capacity:  1 + float64(i%3),
			Cooling:   i%4 == 1,
			Heating:   i%4 == 3,
		}
	}
	return reqs
}

func printEvent(w io.Writer, topic string, payload any) {
	b, err := json.Marshal(simEvent{Topic: topic, Payload: payload})
	if err != nil {
		fmt.Fprintf(w, "{\"topic\":%q,\"error\":%q}\n", topic, err.Error())
		return
	}
	fmt.Fprintln(w, string(b))
}
