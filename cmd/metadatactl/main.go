// Package main is the entry point for metadatactl.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/claudefs/claudefs/internal/cli/connection"
	"github.com/claudefs/claudefs/internal/cli/output"
	"github.com/claudefs/claudefs/internal/infra/buildinfo"
)

// envelope mirrors the JSON shape written by internal/server/metaserver,
// so responses can be unwrapped before formatting.
type envelope struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "metadatactl",
		Usage:   "administer a metadatad node",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "metadatad HTTP address",
				EnvVars: []string{"CLAUDEFS_SERVER"},
				Value:   "localhost:8080",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output format: table, json, yaml",
				Value:   "table",
			},
			&cli.BoolFlag{
				Name:    "wide",
				Aliases: []string{"w"},
				Usage:   "show wide table output",
			},
		},
		Commands: []*cli.Command{
			statusCommand(),
			fsCommand(),
			adminCommand(),
		},
	}
}

func clientFrom(c *cli.Context) *connection.HTTPClient {
	return connection.NewHTTPClient(c.String("server"), "", "")
}

func formatterFrom(c *cli.Context) output.Formatter {
	return output.NewFormatter(output.Format(c.String("output")), c.Bool("wide"))
}

func requestTimeout(c *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// doGet performs a GET request and unwraps the response envelope into target.
func doGet(c *cli.Context, path string, target any) error {
	client := clientFrom(c)
	ctx, cancel := requestTimeout(c)
	defer cancel()

	resp, err := client.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return unwrap(resp, target)
}

// doPost performs a POST request and unwraps the response envelope into target.
func doPost(c *cli.Context, path string, body any, target any) error {
	client := clientFrom(c)
	ctx, cancel := requestTimeout(c)
	defer cancel()

	resp, err := client.Post(ctx, path, body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return unwrap(resp, target)
}

func unwrap(resp *http.Response, target any) error {
	var env envelope
	if err := connection.ParseResponse(resp, &env); err != nil {
		return err
	}
	if target == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, target)
}

func printResult(c *cli.Context, data any) error {
	return formatterFrom(c).Format(os.Stdout, data)
}
