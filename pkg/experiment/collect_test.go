package experiment

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestArchiveName(t *testing.T) {
	Convey("Archive names combine a second-granular timestamp and the label", t, func() {
		now := time.Date(2024, 3, 7, 14, 5, 9, 0, time.UTC)
		So(ArchiveName("grpc-streaming-tls", now), ShouldEqual, "2024-03-07_14-05-09_grpc-streaming-tls.tar.gz")
	})
}

func TestArchiveCommand(t *testing.T) {
	Convey("The archive command removes a stale archive before packing the results", t, func() {
		command := archiveCommand("/opt/benchmarks/results", "/opt/benchmarks/archive.tar.gz")
		So(command, ShouldEqual, "rm -f /opt/benchmarks/archive.tar.gz && tar -C /opt/benchmarks -czf /opt/benchmarks/archive.tar.gz results")
	})
}

func TestEnvironmentCommand(t *testing.T) {
	Convey("The environment capture command", t, func() {
		command := environmentCommand("/opt/benchmarks/results")

		Convey("creates the target directory first", func() {
			So(command, ShouldStartWith, "mkdir -p /opt/benchmarks/results/environment")
		})

		Convey("captures kernel, cpu, memory and network facts", func() {
			So(command, ShouldContainSubstring, "uname -a > /opt/benchmarks/results/environment/uname")
			So(command, ShouldContainSubstring, "lscpu > /opt/benchmarks/results/environment/lscpu")
			So(command, ShouldContainSubstring, "free -m > /opt/benchmarks/results/environment/memory")
			So(command, ShouldContainSubstring, "ip addr > /opt/benchmarks/results/environment/network")
		})

		Convey("tolerates tools missing on the host", func() {
			So(command, ShouldContainSubstring, "|| true")
		})
	})
}
