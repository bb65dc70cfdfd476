package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	elasticsearch "github.com/elastic/go-elasticsearch/v7"
	esapi "github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/golang/glog"
)

// ElasticIndex is the default index rows are written to.
const ElasticIndex = "seisresp"

// Elastic indexes rows as JSON documents. Re-exporting a run overwrites its
// documents.
type Elastic struct {
	Client *elasticsearch.Client
	Index  string
}

// NewElastic creates a client for a comma separated list of endpoints.
// Credentials may be given as URL user info.
func NewElastic(endpoints string) (*Elastic, error) {
	cfg := elasticsearch.Config{}
	if endpoints != "" {
		cfg.Addresses = strings.Split(endpoints, ",")
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("export: elastic client: %w", err)
	}
	return &Elastic{Client: client, Index: ElasticIndex}, nil
}

func docID(r Row) string {
	return fmt.Sprintf("%s::%s.%s.%s.%s::%d::%g", r.RunID, r.Network, r.Station, r.Location, r.Channel,
		r.EpochStart.UnixMilli(), r.Frequency)
}

func (e *Elastic) Write(ctx context.Context, rows <-chan Row) error {
	res, err := e.Client.Info(e.Client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("export: elastic info: %w", err)
	}
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("export: elastic info: %s", res.Status())
	}
	glog.V(1).Infof("using Elastic client version %s and connected to server: %s", elasticsearch.Version, body)

	index := e.Index
	if index == "" {
		index = ElasticIndex
	}
	counts := map[string]int{
		"error":   0,
		"success": 0,
		"total":   0,
	}
	for r := range rows {
		counts["total"]++
		b, err := json.Marshal(r)
		if err != nil {
			counts["error"]++
			glog.Warningf("error marshalling row: %s", err)
			continue
		}
		req := esapi.IndexRequest{
			Index:      index,
			DocumentID: docID(r),
			Body:       bytes.NewReader(b),
		}
		res, err := req.Do(ctx, e.Client)
		if err != nil {
			counts["error"]++
			glog.Warningf("error exporting row: %s", err)
			continue
		}
		if res.IsError() {
			counts["error"]++
			glog.Warningf("error exporting row: %s", res.String())
		} else {
			counts["success"]++
		}
		res.Body.Close()
		if counts["total"]%rowCountInfo == 0 {
			glog.V(1).Infof("Row export counts: %+v", counts)
		}
	}
	glog.V(1).Infof("Row export counts: %+v", counts)

	if res, err := e.Client.Indices.Refresh(
		e.Client.Indices.Refresh.WithContext(ctx),
		e.Client.Indices.Refresh.WithIndex(index),
	); err == nil {
		res.Body.Close()
	}

	if counts["error"] > 0 {
		return fmt.Errorf("export: %d of %d rows failed", counts["error"], counts["total"])
	}
	return ctx.Err()
}
