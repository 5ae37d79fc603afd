// Command clobctl is an operator CLI against one clobd instance's grpc
// service: it books a connection pool of one and prints the book depth
// or round-trips a place-order request for smoke testing a deployment.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/grpc/client"
	clobpb "github.com/abdoElHodaky/tradSys/proto/clob"
)

func main() {
	var (
		target  = flag.String("target", "localhost:8082", "clobd grpc address")
		command = flag.String("cmd", "depth", "depth|place|cancel")
		body    = flag.String("body", "{}", "JSON request body for place/cancel")
		timeout = flag.Duration("timeout", 5*time.Second, "request timeout")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	options := client.DefaultConnectionPoolOptions()
	options.MaxSize = 1
	pool, err := client.NewConnectionPool(*target, logger, options)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer pool.Close()

	clob := client.NewClobClient(pool)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *command {
	case "depth":
		resp, err := clob.BookDepth(ctx)
		exitOn(err)
		fmt.Printf("bids=%d asks=%d\n", resp.Bids, resp.Asks)
	case "place":
		req := new(clobpb.PlaceOrderRequest)
		exitOn(json.Unmarshal([]byte(*body), req))
		resp, err := clob.PlaceOrder(ctx, req)
		exitOn(err)
		fmt.Printf("correlation_id=%s sequence_number=%d base_traded=%d quote_traded=%d resting=%t\n",
			resp.CorrelationID, resp.SequenceNumber, resp.BaseTraded, resp.QuoteTraded, resp.Resting)
	case "cancel":
		req := new(clobpb.CancelRequest)
		exitOn(json.Unmarshal([]byte(*body), req))
		resp, err := clob.Cancel(ctx, req)
		exitOn(err)
		fmt.Printf("correlation_id=%s\n", resp.CorrelationID)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", *command)
		os.Exit(2)
	}
}

func exitOn(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
