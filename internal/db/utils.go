package db

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	dbpkg "github.com/dtnitsch/tagcount/pkg/db"
)

// GetRunOrLatest resolves the run named by the first argument, a numeric id
// or a UUID, or the latest run if none is given.
func GetRunOrLatest(c *cli.Context, database *dbpkg.DB) (*dbpkg.Run, error) {
	if c.NArg() == 0 {
		runs, err := database.ListRuns(1)
		if err != nil {
			return nil, fmt.Errorf("failed to get latest run: %w", err)
		}
		if len(runs) == 0 {
			return nil, fmt.Errorf("no runs found. Run 'tagcount top' first")
		}
		return &runs[0], nil
	}
	return ResolveRun(c.Args().First(), database)
}

// ResolveRun looks a run up by numeric id, falling back to its UUID.
func ResolveRun(arg string, database *dbpkg.DB) (*dbpkg.Run, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return database.GetRun(id)
	}
	return database.GetRunByUUID(arg)
}
