package experiment

import (
	"testing"

	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func testAxes() Axes {
	return Axes{
		Rates:            []string{"1001K", "501K"},
		Lengths:          []int{32, 288},
		Bursts:           []int{1},
		Runs:             2,
		Iterations:       60,
		WarmupIterations: 10,
		WarmupRate:       "10K",
	}
}

func TestExpand(t *testing.T) {
	Convey("When expanding sweep axes", t, func() {
		Convey("the cross product is pairs x bursts x runs in nested order", func() {
			configs, err := testAxes().Expand()
			So(err, ShouldBeNil)
			So(configs, ShouldHaveLength, 4)

			So(configs[0], ShouldResemble, RunConfig{Rate: "1001K", Length: 32, Burst: 1, Run: 0, Iterations: 60, WarmupIterations: 10, WarmupRate: "10K"})
			So(configs[1], ShouldResemble, RunConfig{Rate: "1001K", Length: 32, Burst: 1, Run: 1, Iterations: 60, WarmupIterations: 10, WarmupRate: "10K"})
			So(configs[2], ShouldResemble, RunConfig{Rate: "501K", Length: 288, Burst: 1, Run: 0, Iterations: 60, WarmupIterations: 10, WarmupRate: "10K"})
			So(configs[3], ShouldResemble, RunConfig{Rate: "501K", Length: 288, Burst: 1, Run: 1, Iterations: 60, WarmupIterations: 10, WarmupRate: "10K"})
		})

		Convey("burst sizes vary slower than the run index", func() {
			axes := testAxes()
			axes.Rates = []string{"101K"}
			axes.Lengths = []int{1344}
			axes.Bursts = []int{1, 10}

			configs, err := axes.Expand()
			So(err, ShouldBeNil)
			So(configs, ShouldHaveLength, 4)
			So(configs[0].Burst, ShouldEqual, 1)
			So(configs[1].Burst, ShouldEqual, 1)
			So(configs[2].Burst, ShouldEqual, 10)
			So(configs[3].Burst, ShouldEqual, 10)
		})

		Convey("mismatched rate and length cardinality is rejected with both counts", func() {
			axes := testAxes()
			axes.Lengths = []int{32}

			_, err := axes.Expand()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "2 rates but 1 lengths")
		})

		Convey("an empty bursts axis is rejected", func() {
			axes := testAxes()
			axes.Bursts = nil

			_, err := axes.Expand()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "bursts")
		})

		Convey("a malformed rate is rejected before any expansion", func() {
			axes := testAxes()
			axes.Rates = []string{"1001K", "fastest"}

			_, err := axes.Expand()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "fastest")
		})
	})
}

func TestParseRate(t *testing.T) {
	Convey("When parsing message rates", t, func() {
		Convey("plain numbers pass through", func() {
			rate, err := ParseRate("250")
			So(err, ShouldBeNil)
			So(rate.Equal(decimal.NewFromInt(250)), ShouldBeTrue)
		})

		Convey("K and M suffixes multiply", func() {
			rate, err := ParseRate("1001K")
			So(err, ShouldBeNil)
			So(rate.Equal(decimal.NewFromInt(1001000)), ShouldBeTrue)

			rate, err = ParseRate("1.5M")
			So(err, ShouldBeNil)
			So(rate.Equal(decimal.NewFromInt(1500000)), ShouldBeTrue)
		})

		Convey("lowercase suffixes work too", func() {
			rate, err := ParseRate("10k")
			So(err, ShouldBeNil)
			So(rate.Equal(decimal.NewFromInt(10000)), ShouldBeTrue)
		})

		Convey("garbage and non-positive rates are rejected", func() {
			_, err := ParseRate("fast")
			So(err, ShouldNotBeNil)

			_, err = ParseRate("0")
			So(err, ShouldNotBeNil)

			_, err = ParseRate("-5K")
			So(err, ShouldNotBeNil)
		})
	})
}
