package users

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"

	"github.com/tradepost/funcircle/pkg/users/types"
)

type hits struct {
	Total    map[string]interface{} `json:"total"`
	MaxScore float64                `json:"max_score"`
	Hits     []struct {
		Index  string     `json:"_index"`
		Type   string     `json:"_type"`
		ID     string     `json:"_id"`
		Score  float64    `json:"_score"`
		Source types.User `json:"_source"`
	} `json:"hits"`
}

type result struct {
	Took     int            `json:"took"`
	TimedOut bool           `json:"timed_out"`
	Shards   map[string]int `json:"_shards"`
	Hits     hits           `json:"hits"`
}

// Search looks up accounts by display name in elasticsearch.
type Search struct {
	client *elasticsearch.Client
	index  string
}

func NewSearchBackend(client *elasticsearch.Client, index string) *Search {
	if index == "" {
		index = "users"
	}

	return &Search{client: client, index: index}
}

func (s *Search) Search(ctx context.Context, input string, limit int) ([]*types.User, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"match_phrase_prefix": map[string]interface{}{
				"display_name": input,
			},
		},
	}

	buf := &bytes.Buffer{}
	err := json.NewEncoder(buf).Encode(body)
	if err != nil {
		return nil, err
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(buf),
		s.client.Search.WithSize(limit),
	)
	if err != nil {
		return nil, errors.Wrap(err, "search request failed")
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search failed with status %s", res.Status())
	}

	result := &result{}
	err = json.NewDecoder(res.Body).Decode(result)
	if err != nil {
		return nil, err
	}

	val := make([]*types.User, 0, len(result.Hits.Hits))
	for _, h := range result.Hits.Hits {
		user := h.Source
		val = append(val, &user)
	}

	return val, nil
}

// Index writes the account document searched by Search.
func (s *Search) Index(ctx context.Context, user *types.User) error {
	body, err := json.Marshal(user)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: strconv.Itoa(user.ID),
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return errors.Wrap(err, "index request failed")
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index failed with status %s", res.Status())
	}

	return nil
}
