package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tradepost/funcircle/pkg/sql"
	"github.com/tradepost/funcircle/pkg/users"
)

const indexBatch = 100

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "reindexes accounts for friend search",
	RunE:  runIndex,
}

func runIndex(*cobra.Command, []string) error {
	if len(config.Elastic.Addresses) == 0 {
		return fmt.Errorf("no elasticsearch addresses configured")
	}

	db, err := sql.Open(config.DB)
	if err != nil {
		return errors.Wrap(err, "failed to open db")
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: config.Elastic.Addresses})
	if err != nil {
		return errors.Wrap(err, "failed to create elasticsearch client")
	}

	userBackend := users.NewUserBackend(db)
	search := users.NewSearchBackend(client, config.Elastic.Index)

	ctx := context.Background()

	after, total := 0, 0
	for {
		batch, err := userBackend.ListAfter(ctx, after, indexBatch)
		if err != nil {
			return errors.Wrap(err, "failed to list accounts")
		}

		if len(batch) == 0 {
			break
		}

		for _, user := range batch {
			err := search.Index(ctx, user)
			if err != nil {
				log.Printf("search.Index %d err: %v\n", user.ID, err)
				continue
			}

			total++
		}

		after = batch[len(batch)-1].ID
		log.Printf("indexed %d accounts\n", total)
	}

	log.Printf("finished, total indexed: %d", total)
	return nil
}
