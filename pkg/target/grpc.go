package target

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"membench/internal/harness"
)

// GRPCHealthTarget measures a gRPC backend through its standard health
// service. The single connection multiplexes streams, so it is shared
// across workers.
type GRPCHealthTarget struct {
	conn    *grpc.ClientConn
	client  grpc_health_v1.HealthClient
	service string
}

// NewGRPCHealthTarget dials the given address. The connection is lazy; the
// first health check surfaces connectivity problems.
func NewGRPCHealthTarget(addr, service string) (*GRPCHealthTarget, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	return &GRPCHealthTarget{
		conn:    conn,
		client:  grpc_health_v1.NewHealthClient(conn),
		service: service,
	}, nil
}

// Close tears down the connection.
func (t *GRPCHealthTarget) Close() error {
	return t.conn.Close()
}

// CheckOp returns an operation that issues a health check and requires a
// SERVING response.
func (t *GRPCHealthTarget) CheckOp() harness.Operation {
	return func(ctx context.Context) error {
		resp, err := t.client.Check(ctx, &grpc_health_v1.HealthCheckRequest{
			Service: t.service,
		})
		if err != nil {
			return err
		}
		if resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
			return fmt.Errorf("health status %s", resp.Status)
		}
		return nil
	}
}
