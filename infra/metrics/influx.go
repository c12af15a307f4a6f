package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/HGFantasy/TPF2-Timetables-sub001/core/metrics"
	"github.com/HGFantasy/TPF2-Timetables-sub001/infra/logger"
)

// InfluxRecorder forwards observed dispatch delays to an InfluxDB
// instance, which is where the delay-statistics engine aggregates them.
type InfluxRecorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxRecorder creates a recorder for the given InfluxDB endpoint.
func NewInfluxRecorder(url, token, org, bucket string) *InfluxRecorder {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxRecorder{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-recorder"),
	}
}

// NewInfluxRecorderWithFallback pings the InfluxDB instance and falls
// back to a no-op recorder when the health check fails, so a missing
// statistics backend never blocks dispatch.
func NewInfluxRecorderWithFallback(url, token, org, bucket string) coremetrics.DelayRecorder {
	rec := NewInfluxRecorder(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := rec.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			rec.log.Errorf("influx health check error: %v", err)
		} else {
			rec.log.Errorf("influx health status: %s", health.Status)
		}
		rec.client.Close()
		return coremetrics.NopSink{}
	}
	return rec
}

// RecordDelay writes one delay observation as line protocol.
func (r *InfluxRecorder) RecordDelay(ev coremetrics.DelayEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_delay").
		AddTag("line", strconv.FormatUint(uint64(ev.Line), 10)).
		AddTag("vehicle", strconv.FormatUint(uint64(ev.Vehicle), 10)).
		AddTag("stop", strconv.Itoa(int(ev.Stop))).
		AddField("delay_seconds", ev.DelaySeconds).
		AddField("sim_time", ev.Now).
		SetTime(time.Now())
	return r.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (r *InfluxRecorder) Close() { r.client.Close() }
