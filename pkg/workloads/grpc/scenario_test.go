package grpc

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestScenarios(t *testing.T) {
	Convey("When expanding the scenario matrix", t, func() {
		Convey("the default matrix holds plaintext and TLS variants", func() {
			scenarios := Scenarios(true, false, "")
			So(scenarios, ShouldHaveLength, 2)
			So(scenarios[0].TLS, ShouldBeFalse)
			So(scenarios[1].TLS, ShouldBeTrue)
			So(scenarios[0].Label(), ShouldEqual, "grpc-streaming")
			So(scenarios[1].Label(), ShouldEqual, "grpc-streaming-tls")
		})

		Convey("disabling TLS leaves only the plaintext variant", func() {
			scenarios := Scenarios(false, false, "")
			So(scenarios, ShouldHaveLength, 1)
			So(scenarios[0].Label(), ShouldEqual, "grpc-streaming")
		})

		Convey("onload marks every variant's label", func() {
			scenarios := Scenarios(true, true, "")
			So(scenarios[0].Label(), ShouldEqual, "grpc-streaming-onload")
			So(scenarios[1].Label(), ShouldEqual, "grpc-streaming-tls-onload")
		})

		Convey("a context tag ends the label", func() {
			scenario := Scenario{TLS: true, Onload: true, Context: "kernel-6.8"}
			So(scenario.Label(), ShouldEqual, "grpc-streaming-tls-onload-kernel-6.8")
		})
	})
}
