package keystone_test

import (
	"context"
	"fmt"
	"testing/fstest"

	"github.com/bft-labs/keystone/pkg/keystone"
	"github.com/bft-labs/keystone/pkg/lifecycle"
	"github.com/bft-labs/keystone/pkg/schema"
)

type discardExecutor struct{}

func (discardExecutor) Execute(context.Context, string) error { return nil }

// ExampleNew demonstrates installing a schema with in-memory ledgers.
func ExampleNew() {
	files := fstest.MapFS{
		"manifest.yaml": {Data: []byte("artifacts:\n  - {name: events, store: timeseries, version: 1, file: events.cql}\n")},
		"events.cql":    {Data: []byte("CREATE TABLE events (id uuid PRIMARY KEY);\n")},
	}

	k, err := keystone.New(keystone.Config{
		Loader: schema.FSLoader{FS: files},
		Stores: []keystone.Store{
			{Kind: schema.StoreTimeseries, Executor: discardExecutor{}, Ledger: schema.NewMemoryLedger()},
		},
	})
	if err != nil {
		fmt.Printf("failed to create keystone: %v\n", err)
		return
	}

	report, err := k.Install(context.Background())
	if err != nil {
		fmt.Printf("install failed: %v\n", err)
		return
	}
	fmt.Println("applied:", report.Count(schema.Applied))

	report, _ = k.Install(context.Background())
	fmt.Println("skipped:", report.Count(schema.Skipped))
	// Output:
	// applied: 1
	// skipped: 1
}

// ExampleKeystone_Start demonstrates driving a component through its lifecycle.
func ExampleKeystone_Start() {
	files := fstest.MapFS{
		"manifest.yaml": {Data: []byte("artifacts:\n  - {name: events, store: timeseries, version: 1, file: events.cql}\n")},
		"events.cql":    {Data: []byte("CREATE TABLE events (id uuid PRIMARY KEY);\n")},
	}

	done := make(chan lifecycle.Event, 8)
	k, err := keystone.New(keystone.Config{
		Loader: schema.FSLoader{FS: files},
		Stores: []keystone.Store{
			{Kind: schema.StoreTimeseries, Executor: discardExecutor{}, Ledger: schema.NewMemoryLedger()},
		},
	}, keystone.WithSubscriber("printer", lifecycle.HandlerFunc(func(ev lifecycle.Event) error {
		done <- ev
		return nil
	})))
	if err != nil {
		fmt.Printf("failed to create keystone: %v\n", err)
		return
	}

	ctx := context.Background()
	if err := k.Start(ctx); err != nil {
		fmt.Printf("failed to start: %v\n", err)
		return
	}

	id := lifecycle.Identity{Tenant: "acme", Kind: "ingester", ID: "i-1"}
	_, _ = k.Registry().Transition(id, lifecycle.Created, "registered")
	_, _ = k.Registry().Transition(id, lifecycle.Started, "booted")

	_ = k.Stop(ctx)
	close(done)
	for ev := range done {
		fmt.Println(ev.Sequence, ev.PreviousString(), "->", ev.Current)
	}
	// Output:
	// 1 - -> CREATED
	// 2 CREATED -> STARTED
}
