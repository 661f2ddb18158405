package httpd

import (
	"html"
	"strconv"

	"github.com/itohio/gohtu/pkg/sensor"
)

var (
	responseHead = []string{
		"HTTP/1.1 200 OK",
		"Content-type:text/html",
		"Connection: close",
		"",
		"<!DOCTYPE html><html>",
		`<head><meta name="viewport" content="width=device-width, initial-scale=1">`,
		`<link rel="icon" href="data:,">`,
		"<style>html { font-family: Helvetica; display: inline-block; margin: 0px auto; text-align: center;}",
		"p { font-size: 1.5rem; }</style></head>",
		"<body><h1>HTU31D Sensor Node</h1>",
	}
	responseTail = []string{
		"</body></html>",
		"",
	}
)

// Page renders the response, status line included, as lines without terminators.
// When humidity is set the document carries the local time and, once a
// reading exists, the raw values. A nil reading means none has been taken yet.
func Page(humidity bool, localTime string, r *sensor.Reading) []string {
	lines := make([]string, 0, len(responseHead)+len(responseTail)+3)
	lines = append(lines, responseHead...)
	if humidity {
		lines = append(lines, "<p>Time: "+html.EscapeString(localTime)+"</p>")
		if r != nil {
			lines = append(lines,
				"<p>Temp [F]: "+oneDecimal(r.Fahrenheit())+"</p>",
				"<p>Humidity: "+oneDecimal(r.RelativeHumidityPercent)+"</p>",
			)
		} else {
			lines = append(lines, "<p>No reading yet</p>")
		}
	}
	return append(lines, responseTail...)
}

func oneDecimal(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', 1, 32)
}
