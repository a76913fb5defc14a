package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "show node health and cluster status",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "check whether the node is responding",
				Action: statusHealth,
			},
			{
				Name:   "cluster",
				Usage:  "show gossip cluster membership",
				Action: statusCluster,
			},
			{
				Name:   "statfs",
				Usage:  "show filesystem capacity summary",
				Action: statusStatFs,
			},
		},
		Action: statusSummary,
	}
}

func statusSummary(c *cli.Context) error {
	var result map[string]any
	if err := doGet(c, "/admin/v1/status", &result); err != nil {
		return err
	}
	return printResult(c, result)
}

func statusHealth(c *cli.Context) error {
	var result map[string]any
	if err := doGet(c, "/ready", &result); err != nil {
		fmt.Fprintf(os.Stderr, "node not ready: %v\n", err)
		return err
	}
	return printResult(c, result)
}

func statusCluster(c *cli.Context) error {
	var result map[string]any
	if err := doGet(c, "/admin/v1/cluster", &result); err != nil {
		return err
	}
	return printResult(c, result)
}

func statusStatFs(c *cli.Context) error {
	var result map[string]any
	if err := doGet(c, "/admin/v1/statfs", &result); err != nil {
		return err
	}
	return printResult(c, result)
}
