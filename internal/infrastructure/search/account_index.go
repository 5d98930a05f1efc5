package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
	"github.com/oksasatya/go-account-service/pkg/helpers"
)

// AccountIndex mirrors accounts into Elasticsearch for lookup by name or email.
// The index is a read model; Postgres stays the source of truth.
type AccountIndex struct {
	ES      *elasticsearch.Client
	Index   string
	Logger  *logrus.Logger
	Timeout time.Duration
}

func NewAccountIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *AccountIndex {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &AccountIndex{ES: es, Index: index, Logger: logger, Timeout: 3 * time.Second}
}

// Document is the indexed shape of an account. It never carries credentials.
type Document struct {
	ID            string `json:"id"`
	EmailAddress  string `json:"emailAddress"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	AvatarURL     string `json:"avatarUrl"`
	IsVerified    bool   `json:"isVerified"`
	IsDeactivated bool   `json:"isDeactivated"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

func NewDocument(a *entity.Account) Document {
	return Document{
		ID:            a.ID,
		EmailAddress:  a.Email,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		AvatarURL:     a.AvatarURL,
		IsVerified:    a.IsVerified,
		IsDeactivated: a.IsDeactivated,
		CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:     a.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (x *AccountIndex) enabled() bool {
	return x != nil && x.ES != nil && x.Index != ""
}

// Put indexes the latest state of a.
func (x *AccountIndex) Put(ctx context.Context, a *entity.Account) error {
	if !x.enabled() {
		return nil
	}
	b, err := json.Marshal(NewDocument(a))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.Index, DocumentID: a.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, x.Timeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index: %s", res.Status())
	}
	return nil
}

// Remove deletes the document for id; a missing document is not an error.
func (x *AccountIndex) Remove(ctx context.Context, id string) error {
	if !x.enabled() {
		return nil
	}
	req := esapi.DeleteRequest{Index: x.Index, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, x.Timeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("es delete: %s", res.Status())
	}
	return nil
}

// Search runs a multi_match over email and names.
func (x *AccountIndex) Search(ctx context.Context, q string, size int) ([]Document, error) {
	if !x.enabled() {
		return []Document{}, nil
	}
	b, err := json.Marshal(BuildQuery(q, size))
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, x.Timeout)
	defer cancel()

	res, err := x.ES.Search(x.ES.Search.WithContext(c), x.ES.Search.WithIndex(x.Index), x.ES.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]Document, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

// indexMapping keeps emails exact-matchable while names stay full text.
const indexMapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "keyword"},
      "emailAddress":  {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "firstName":     {"type": "text"},
      "lastName":      {"type": "text"},
      "avatarUrl":     {"type": "keyword", "index": false},
      "isVerified":    {"type": "boolean"},
      "isDeactivated": {"type": "boolean"},
      "createdAt":     {"type": "date"},
      "updatedAt":     {"type": "date"}
    }
  }
}`

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (x *AccountIndex) EnsureIndex(ctx context.Context) error {
	if !x.enabled() {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, x.Timeout)
	defer cancel()

	exists, err := esapi.IndicesExistsRequest{Index: []string{x.Index}}.Do(c, x.ES)
	if err != nil {
		return err
	}
	_ = exists.Body.Close()
	if exists.StatusCode == 200 {
		return nil
	}

	res, err := esapi.IndicesCreateRequest{Index: x.Index, Body: strings.NewReader(indexMapping)}.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	switch {
	case res.StatusCode == 400:
		// resource_already_exists: a concurrent creator won
		return nil
	case res.IsError():
		return fmt.Errorf("es create index: %s", res.Status())
	}
	x.Logger.WithField("index", x.Index).Info("es index created")
	return nil
}

// BuildQuery clamps size to [1, 50], defaulting to 10.
func BuildQuery(q string, size int) map[string]any {
	if size <= 0 || size > 50 {
		size = 10
	}
	return map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"emailAddress^2", "firstName", "lastName"},
			},
		},
		"size": size,
	}
}
