package vm

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Xassemblianist/ATALWF/internal/era5"
)

// Client is a Victoria Metrics client capable of inserting point readings via
// various protocols.
type Client struct {
	logger       *zap.SugaredLogger
	httpCli      *http.Client
	insertURL    string
	metricPrefix string
	recToText    recToTextFunc
}

const metricPrefixRE = "^[a-zA-Z0-9]+$"

// NewClient creates a new VM client.
func NewClient(logger *zap.SugaredLogger, insertURL string, maxConns int, metricPrefix string) (*Client, error) {
	url, err := url.Parse(insertURL)
	if err != nil {
		return nil, err
	}

	matches, err := regexp.MatchString(metricPrefixRE, metricPrefix)
	if err != nil {
		return nil, err
	}
	if !matches {
		return nil, fmt.Errorf("metric prefix %q does not match %q regular expression", metricPrefix, metricPrefixRE)
	}

	apiParams := apiParamsFuncs[url.Path]
	if apiParams == nil {
		return nil, fmt.Errorf("inserting into %q is not supported", insertURL)
	}
	q := url.Query()
	for name, value := range apiParams(metricPrefix) {
		q.Add(name, value)
	}
	url.RawQuery = q.Encode()

	recToText := recToTextFuncs[url.Path]
	if recToText == nil {
		return nil, fmt.Errorf("inserting into %q is not supported", insertURL)
	}
	if maxConns < 1 {
		maxConns = 1
	}

	return &Client{
		logger: logger,
		httpCli: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        maxConns,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: maxConns,
				MaxConnsPerHost:     maxConns,
			},
		},
		insertURL:    url.String(),
		metricPrefix: metricPrefix,
		recToText:    recToText,
	}, nil
}

// Insert inserts readings into Victoria Metrics.
func (c *Client) Insert(ctx context.Context, recs []era5.Reading) error {
	if len(recs) == 0 {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.insertURL, recsToText(recs, c.metricPrefix, c.recToText))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	res, err := c.httpCli.Do(req)
	if err != nil {
		c.logger.Errorw("Could not post data", "err", err)
		return err
	}
	defer res.Body.Close()
	if _, err := io.Copy(io.Discard, res.Body); err != nil {
		c.logger.Errorw("Failed to drain response body", "err", err)
	}
	if res.StatusCode != http.StatusNoContent && res.StatusCode != http.StatusOK {
		c.logger.Errorw("Unexpected status", "code", res.StatusCode)
		return fmt.Errorf("unexpected status %d from %s", res.StatusCode, c.insertURL)
	}
	c.logger.Debugw("Inserted readings", "count", len(recs))
	return nil
}

type apiParamsFunc func(string) map[string]string

var apiParamsFuncs = map[string]apiParamsFunc{
	"/influx/write":        influxDBAPIParams,
	"/influx/api/v2/write": influxDBAPIParams,
	"/write":               influxDBAPIParams,
	"/api/v2/write":        influxDBAPIParams,
	"/api/v1/import/csv":   csvAPIParams,
}

// Timestamps are sent in milliseconds.
func influxDBAPIParams(metricPrefix string) map[string]string {
	return map[string]string{"precision": "ms"}
}

func csvAPIParams(metricPrefix string) map[string]string {
	return map[string]string{
		"format": fmt.Sprintf(""+
			"1:time:unix_ms,"+
			"2:label:la,"+
			"3:label:lo,"+
			"4:metric:%[1]s_temperature,"+
			"5:metric:%[1]s_dew_point,"+
			"6:metric:%[1]s_pressure,"+
			"7:metric:%[1]s_wind_speed,"+
			"8:metric:%[1]s_rain,"+
			"9:metric:%[1]s_u10,"+
			"10:metric:%[1]s_v10", metricPrefix),
	}
}

type recToTextFunc func(*strings.Builder, *era5.Reading, string)

// recsToText converts multiple readings to text.
func recsToText(recs []era5.Reading, metricPrefix string, recToText recToTextFunc) io.Reader {
	var sb strings.Builder
	for _, r := range recs {
		recToText(&sb, &r, metricPrefix)
		sb.WriteString("\n")
	}
	return strings.NewReader(sb.String())
}

var recToTextFuncs = map[string]recToTextFunc{
	"/influx/write":        recToInfluxDB,
	"/influx/api/v2/write": recToInfluxDB,
	"/write":               recToInfluxDB,
	"/api/v2/write":        recToInfluxDB,
	"/api/v1/import/csv":   recToCSV,
}

var tagEscaper = strings.NewReplacer(",", `\,`, " ", `\ `, "=", `\=`)

var influxDBFmt = "%s,location=%s,la=%.2f,lo=%.2f temperature=%g,dew_point=%g,pressure=%g,wind_speed=%g,rain=%g,u10=%g,v10=%g %d"

// recToInfluxDB converts a reading into InfluxDB line protocol v2 and
// appends it to the string builder.
func recToInfluxDB(sb *strings.Builder, r *era5.Reading, metricPrefix string) {
	location := r.Location.Name
	if location == "" {
		location = "unknown"
	}
	sb.WriteString(fmt.Sprintf(influxDBFmt, []any{
		metricPrefix,
		tagEscaper.Replace(location),
		r.Cell.Latitude,
		r.Cell.Longitude,
		r.Temperature,
		r.DewPoint,
		r.Pressure,
		r.WindSpeed,
		r.Rain,
		r.ZonalWind,
		r.MeridionalWind,
		timestamp(r),
	}...))
}

var csvFmt = "%d,%.2f,%.2f,%g,%g,%g,%g,%g,%g,%g"

// recToCSV converts a reading into a CSV record and appends it to the
// string builder.
func recToCSV(sb *strings.Builder, r *era5.Reading, _ string) {
	sb.WriteString(fmt.Sprintf(csvFmt, []any{
		timestamp(r),
		r.Cell.Latitude,
		r.Cell.Longitude,
		r.Temperature,
		r.DewPoint,
		r.Pressure,
		r.WindSpeed,
		r.Rain,
		r.ZonalWind,
		r.MeridionalWind,
	}...))
}

func timestamp(r *era5.Reading) int64 {
	if r.ValidTime.IsZero() {
		return time.Now().UnixMilli()
	}
	return r.ValidTime.UnixMilli()
}
