package driver

import (
	"context"
	"fmt"
	"log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type MemgraphDriver struct {
	Driver neo4j.DriverWithContext
}

func NewMemgraphDriver(ctx context.Context, uri, username, password string) (*MemgraphDriver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create memgraph driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to reach memgraph at %s: %w", uri, err)
	}

	log.Printf("[GRAPH] Connected to Memgraph at %s", uri)
	return &MemgraphDriver{Driver: driver}, nil
}

func (d *MemgraphDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *MemgraphDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

func (d *MemgraphDriver) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX ON :Signature(id);",
		"CREATE INDEX ON :Signature(course_id);",
		"CREATE INDEX ON :Student(id);",
	}

	for _, q := range queries {
		if _, err := d.ExecuteQuery(ctx, q, nil); err != nil {
			// Memgraph rejects an index that already exists.
			log.Printf("[GRAPH] Warning: failed to create index '%s': %v", q, err)
		}
	}

	return nil
}
