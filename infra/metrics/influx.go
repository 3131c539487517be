package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/fletescerealeros/fletes/core/metrics"
	"github.com/fletescerealeros/fletes/core/model"
	"github.com/fletescerealeros/fletes/infra/logger"
)

// InfluxSink writes engine events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a down Influx never breaks chat.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

var _ coremetrics.Sink = (*InfluxSink)(nil)

// RecordMessage writes one classified-message point.
func (s *InfluxSink) RecordMessage(action model.ActionKind) {
	label := string(action)
	if label == "" {
		label = "none"
	}
	p := write.NewPointWithMeasurement("message_classified").
		AddTag("action", label).
		AddField("count", 1).
		SetTime(time.Now())
	s.write(p)
}

// RecordProposal writes one proposal point with its score.
func (s *InfluxSink) RecordProposal(score float64) {
	p := write.NewPointWithMeasurement("proposal_created").
		AddField("score", score).
		SetTime(time.Now())
	s.write(p)
}

// RecordResolution writes one resolution point.
func (s *InfluxSink) RecordResolution(status model.ProposalStatus) {
	p := write.NewPointWithMeasurement("proposal_resolved").
		AddTag("status", string(status)).
		AddField("count", 1).
		SetTime(time.Now())
	s.write(p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func (s *InfluxSink) write(p *write.Point) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		s.log.Errorf("influx write: %v", err)
	}
}
