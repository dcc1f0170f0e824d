package flight

import (
	"fmt"

	"arrow-spatial/pkg/logging"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// NewFlightServer returns a Flight server with the spatial exchange
// service registered.
func NewFlightServer(opts Options, grpcOpts ...grpc.ServerOption) flight.Server {
	server := flight.NewServerWithMiddleware(nil, grpcOpts...)
	server.RegisterFlightService(NewSpatialFlightServer(opts))
	return server
}

func StartFlightServer(opts Options, port int) error {
	return StartFlightServerWithGRPC(opts, port)
}

// StartFlightServerWithGRPC allows passing custom gRPC options
func StartFlightServerWithGRPC(opts Options, port int, grpcOpts ...grpc.ServerOption) error {
	addr := fmt.Sprintf(":%d", port)
	server := NewFlightServer(opts, grpcOpts...)

	logging.L().Info("starting spatial flight server", zap.String("addr", addr))
	if err := server.Init(addr); err != nil {
		return err
	}
	return server.Serve()
}
