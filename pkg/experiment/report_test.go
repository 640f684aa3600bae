package experiment

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestReport(t *testing.T) {
	Convey("When accumulating run results", t, func() {
		report := NewReport()
		config := RunConfig{Rate: "501K", Length: 288, Burst: 1}

		report.Add("grpc-streaming", config, ClientResult{Throughput: 500000})
		report.Add("grpc-streaming", config, ClientResult{Throughput: 502000})
		report.Add("grpc-streaming-tls", config, ClientResult{Throughput: 480000})

		Convey("runs of the same configuration group into one row", func() {
			var buffer bytes.Buffer
			report.Render(&buffer)
			output := buffer.String()

			So(output, ShouldContainSubstring, "grpc-streaming")
			So(output, ShouldContainSubstring, "grpc-streaming-tls")
			So(output, ShouldContainSubstring, "501000")
			So(output, ShouldContainSubstring, "480000")
		})

		Convey("rows keep first-seen order across scenarios", func() {
			So(report.order, ShouldHaveLength, 2)
			So(report.order[0].Scenario, ShouldEqual, "grpc-streaming")
			So(report.order[1].Scenario, ShouldEqual, "grpc-streaming-tls")
		})
	})
}
