package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func fsCommand() *cli.Command {
	return &cli.Command{
		Name:  "fs",
		Usage: "drive filesystem operations against a metadatad node",
		Subcommands: []*cli.Command{
			{
				Name:      "lookup",
				Usage:     "resolve a name within a directory",
				ArgsUsage: "NAME",
				Flags:     []cli.Flag{parentFlag()},
				Action:    fsLookup,
			},
			{
				Name:      "getattr",
				Usage:     "show inode attributes",
				ArgsUsage: "INO",
				Action:    fsGetAttr,
			},
			{
				Name:      "readdir",
				Usage:     "list directory entries",
				ArgsUsage: "DIR_INO",
				Action:    fsReaddir,
			},
			{
				Name:      "mkdir",
				Usage:     "create a directory",
				ArgsUsage: "NAME",
				Flags:     createFlags(),
				Action:    fsMkdir,
			},
			{
				Name:      "create",
				Usage:     "create a regular file",
				ArgsUsage: "NAME",
				Flags:     createFlags(),
				Action:    fsCreate,
			},
			{
				Name:      "unlink",
				Usage:     "remove a file",
				ArgsUsage: "NAME",
				Flags:     []cli.Flag{parentFlag()},
				Action:    fsUnlink,
			},
			{
				Name:      "rmdir",
				Usage:     "remove an empty directory",
				ArgsUsage: "NAME",
				Flags:     []cli.Flag{parentFlag()},
				Action:    fsRmdir,
			},
			{
				Name:  "rename",
				Usage: "move or rename an entry",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "src-parent", Required: true},
					&cli.StringFlag{Name: "src-name", Required: true},
					&cli.Uint64Flag{Name: "dst-parent", Required: true},
					&cli.StringFlag{Name: "dst-name", Required: true},
				},
				Action: fsRename,
			},
			{
				Name:  "getxattr",
				Usage: "read an extended attribute",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "ino", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
				},
				Action: fsGetXattr,
			},
			{
				Name:  "setxattr",
				Usage: "write an extended attribute",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "ino", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "value", Required: true},
				},
				Action: fsSetXattr,
			},
		},
	}
}

func parentFlag() cli.Flag {
	return &cli.Uint64Flag{Name: "parent", Required: true, Usage: "parent inode number"}
}

func createFlags() []cli.Flag {
	return []cli.Flag{
		parentFlag(),
		&cli.Uint64Flag{Name: "uid", Usage: "owner uid"},
		&cli.Uint64Flag{Name: "gid", Usage: "owner gid"},
		&cli.UintFlag{Name: "mode", Value: 0o755, Usage: "permission bits"},
	}
}

func fsLookup(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("NAME argument required")
	}
	path := fmt.Sprintf("/v1/fs/lookup?parent=%d&name=%s", c.Uint64("parent"), name)
	var result map[string]any
	if err := doGet(c, path, &result); err != nil {
		return err
	}
	return printResult(c, result)
}

func fsGetAttr(c *cli.Context) error {
	ino := c.Args().First()
	if ino == "" {
		return fmt.Errorf("INO argument required")
	}
	path := fmt.Sprintf("/v1/fs/getattr?ino=%s", ino)
	var result map[string]any
	if err := doGet(c, path, &result); err != nil {
		return err
	}
	return printResult(c, result)
}

func fsReaddir(c *cli.Context) error {
	dir := c.Args().First()
	if dir == "" {
		return fmt.Errorf("DIR_INO argument required")
	}
	path := fmt.Sprintf("/v1/fs/readdir?dir=%s", dir)
	var result []map[string]any
	if err := doGet(c, path, &result); err != nil {
		return err
	}
	return printResult(c, result)
}

func fsMkdir(c *cli.Context) error {
	return fsCreateLike(c, "/v1/fs/mkdir")
}

func fsCreate(c *cli.Context) error {
	return fsCreateLike(c, "/v1/fs/create")
}

func fsCreateLike(c *cli.Context, path string) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("NAME argument required")
	}
	body := map[string]any{
		"parent": c.Uint64("parent"),
		"name":   name,
		"uid":    c.Uint64("uid"),
		"gid":    c.Uint64("gid"),
		"mode":   c.Uint("mode"),
	}
	var result map[string]any
	if err := doPost(c, path, body, &result); err != nil {
		return err
	}
	return printResult(c, result)
}

func fsUnlink(c *cli.Context) error {
	return fsParentNameOp(c, "/v1/fs/unlink")
}

func fsRmdir(c *cli.Context) error {
	return fsParentNameOp(c, "/v1/fs/rmdir")
}

func fsParentNameOp(c *cli.Context, path string) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("NAME argument required")
	}
	body := map[string]any{"parent": c.Uint64("parent"), "name": name}
	var result map[string]any
	if err := doPost(c, path, body, &result); err != nil {
		return err
	}
	return printResult(c, result)
}

func fsRename(c *cli.Context) error {
	body := map[string]any{
		"src_parent": c.Uint64("src-parent"),
		"src_name":   c.String("src-name"),
		"dst_parent": c.Uint64("dst-parent"),
		"dst_name":   c.String("dst-name"),
	}
	var result map[string]any
	if err := doPost(c, "/v1/fs/rename", body, &result); err != nil {
		return err
	}
	return printResult(c, result)
}

func fsGetXattr(c *cli.Context) error {
	path := fmt.Sprintf("/v1/fs/xattr?ino=%d&name=%s", c.Uint64("ino"), c.String("name"))
	var result map[string]any
	if err := doGet(c, path, &result); err != nil {
		return err
	}
	return printResult(c, result)
}

func fsSetXattr(c *cli.Context) error {
	body := map[string]any{
		"ino":   c.Uint64("ino"),
		"name":  c.String("name"),
		"value": c.String("value"),
	}
	var result map[string]any
	if err := doPost(c, "/v1/fs/xattr", body, &result); err != nil {
		return err
	}
	return printResult(c, result)
}
