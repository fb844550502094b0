package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/nodemesh"
	"github.com/hupe1980/nodemesh/core"
	"github.com/hupe1980/nodemesh/node"
)

// Chatter is the demo message.
type Chatter struct {
	Data string `msgpack:"data"`
}

// MessageTypeName implements core.Named.
func (Chatter) MessageTypeName() string { return "std_msgs/msg/String" }

var (
	demoCount     int
	demoNamespace string
	demoTimeout   time.Duration
	demoStats     bool
)

// DemoCmd runs a talker and a listener through one activate/deactivate cycle.
var DemoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a lifecycle talker and listener",
	Long: `Starts a talker publishing on "chatter" from a lifecycle wall timer and a
listener printing what it receives. Both nodes are activated, exchange
--count messages and are deactivated again.

Talker parameters: publish_period_ms (integer), greeting (string).`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, demoTimeout)
		defer cancel()
		return runDemo(ctx, cmd, LoadConfig())
	},
}

func init() {
	DemoCmd.Flags().IntVar(&demoCount, "count", 5, "messages to exchange before deactivating")
	DemoCmd.Flags().StringVar(&demoNamespace, "namespace", "/", "namespace of both nodes")
	DemoCmd.Flags().DurationVar(&demoTimeout, "timeout", 30*time.Second, "overall deadline")
	DemoCmd.Flags().BoolVar(&demoStats, "stats", false, "publish listener topic statistics")
}

func runDemo(ctx context.Context, cmd *cobra.Command, cfg Config) error {
	mesh := nodemesh.New(func(o *nodemesh.Options) {
		o.Logger = cfg.Logger()
		o.ParamsFile = cfg.ParamsFile
	})
	defer mesh.Close()

	inNamespace := func(o *nodemesh.NodeOptions) { o.Namespace = demoNamespace }
	talker, err := mesh.NewNode("talker", inNamespace)
	if err != nil {
		return err
	}
	listener, err := mesh.NewNode("listener", inNamespace)
	if err != nil {
		return err
	}

	periodMS, err := node.DeclareParameter(talker, "publish_period_ms", 200)
	if err != nil {
		return err
	}
	greeting, err := node.DeclareParameter(talker, "greeting", "hello world")
	if err != nil {
		return err
	}

	pub, err := node.CreatePublisher[Chatter](talker, "chatter", core.KeepLast(10))
	if err != nil {
		return err
	}
	var seq atomic.Int64
	timer, err := node.CreateLifecycleWallTimer(talker, time.Duration(periodMS)*time.Millisecond, func() {
		_ = pub.Publish(Chatter{Data: fmt.Sprintf("%s: %d", greeting, seq.Add(1))})
	})
	if err != nil {
		return err
	}

	received := make(chan Chatter, demoCount)
	sub, err := node.CreateSubscription(listener, "chatter", core.KeepLast(10), func(m Chatter) {
		select {
		case received <- m:
		default:
		}
	}, func(o *core.SubscriptionOptions) { o.TopicStatistics.Enabled = demoStats })
	if err != nil {
		return err
	}

	if err := listener.ActivateEntities(); err != nil {
		return err
	}
	if err := talker.ActivateEntities(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for range demoCount {
		select {
		case m := <-received:
			fmt.Fprintf(out, "[%s] I heard: %q\n", listener.FullyQualifiedName(), m.Data)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := talker.DeactivateEntities(); err != nil {
		return err
	}
	if err := listener.DeactivateEntities(); err != nil {
		return err
	}
	fmt.Fprintf(out, "deactivated; publisher active=%t timer canceled=%t\n", pub.IsActivated(), timer.IsCanceled())

	runtime.KeepAlive(sub)
	return nil
}
