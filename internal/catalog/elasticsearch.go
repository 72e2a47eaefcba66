// internal/catalog/elasticsearch.go
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	apperrors "reprocess-intake/internal/common/errors"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchCatalog resolves filenames against the mission's file
// index. Each document carries at least bucket, key and filename fields.
type ElasticsearchCatalog struct {
	Client *elasticsearch.Client
	Index  string
	// DevOnly documents are flagged with dev_bucket=true in the index.
}

func NewElasticsearchCatalog(client *elasticsearch.Client, index string) *ElasticsearchCatalog {
	return &ElasticsearchCatalog{Client: client, Index: index}
}

func (c *ElasticsearchCatalog) FindFile(ctx context.Context, filename string, useDev bool) (FileRef, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []map[string]interface{}{
					{"term": map[string]interface{}{"filename": filename}},
					{"term": map[string]interface{}{"dev_bucket": useDev}},
				},
			},
		},
		"size": 1,
	}

	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(query); err != nil {
		return FileRef{}, apperrors.NewCatalogLookupFailedError(err)
	}

	res, err := c.Client.Search(
		c.Client.Search.WithContext(ctx),
		c.Client.Search.WithIndex(c.Index),
		c.Client.Search.WithBody(&body),
	)
	if err != nil {
		return FileRef{}, apperrors.NewCatalogLookupFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return FileRef{}, apperrors.NewCatalogLookupFailedError(fmt.Errorf("search failed: %s", res.Status()))
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source FileRef `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return FileRef{}, apperrors.NewCatalogLookupFailedError(err)
	}

	if len(r.Hits.Hits) == 0 {
		return FileRef{}, apperrors.NewFileNotInCatalogError(filename)
	}
	return r.Hits.Hits[0].Source, nil
}
