package grpc

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/manuelbernhardt/benchmarks/pkg/experiment"
)

func testConfig() Config {
	return Config{
		BenchmarksDir: "/opt/benchmarks",
		ResultsDir:    "/opt/benchmarks/results",
		CertDir:       "/opt/benchmarks/certificates",
		ServerHost:    "10.0.0.2",
		ServerPort:    13400,
		ServerCore:    -1,
		ServerThread:  "echo-server",
		Label:         "grpc-streaming",
	}
}

func TestProperties(t *testing.T) {
	Convey("An ordered property list", t, func() {
		properties := Properties{
			{"uk.co.real_logic.benchmarks.remote.message.rate", "501K"},
			{"uk.co.real_logic.benchmarks.remote.message.length", "288"},
		}

		Convey("formats to space separated -D options preserving order", func() {
			So(properties.Format(), ShouldEqual,
				"-Duk.co.real_logic.benchmarks.remote.message.rate=501K "+
					"-Duk.co.real_logic.benchmarks.remote.message.length=288")
		})

		Convey("an empty list formats to the empty string", func() {
			So(Properties{}.Format(), ShouldEqual, "")
		})
	})
}

func TestServerCommand(t *testing.T) {
	Convey("When building the server start command", t, func() {
		benchmark := streamingBenchmark{config: testConfig()}
		command := benchmark.serverCommand()

		Convey("it launches the echo server script detached under nohup", func() {
			So(command, ShouldContainSubstring, "nohup /opt/benchmarks/scripts/grpc/echo-server")
			So(command, ShouldEndWith, "> /opt/benchmarks/results/grpc-streaming-server.log 2>&1 &")
		})

		Convey("it passes the connection properties through JVM_OPTS", func() {
			So(command, ShouldStartWith, "JVM_OPTS='")
			So(command, ShouldContainSubstring, "-Duk.co.real_logic.benchmarks.grpc.remote.server.host=10.0.0.2")
			So(command, ShouldContainSubstring, "-Duk.co.real_logic.benchmarks.grpc.remote.server.port=13400")
			So(command, ShouldContainSubstring, "-Duk.co.real_logic.benchmarks.grpc.remote.tls=false")
			So(command, ShouldContainSubstring, "-Duk.co.real_logic.benchmarks.grpc.remote.certificates.dir=/opt/benchmarks/certificates")
		})

		Convey("with TLS enabled the tls property flips", func() {
			config := testConfig()
			config.TLS = true
			tlsCommand := streamingBenchmark{config: config}.serverCommand()
			So(tlsCommand, ShouldContainSubstring, "-Duk.co.real_logic.benchmarks.grpc.remote.tls=true")
		})

		Convey("with an onload command the script is wrapped by it", func() {
			config := testConfig()
			config.OnloadCommand = "onload --profile=latency"
			onloadCommand := streamingBenchmark{config: config}.serverCommand()
			So(onloadCommand, ShouldContainSubstring, "nohup onload --profile=latency /opt/benchmarks/scripts/grpc/echo-server")
		})
	})
}

func TestClientCommand(t *testing.T) {
	Convey("When building the client run command", t, func() {
		benchmark := streamingBenchmark{config: testConfig()}
		runConfig := experiment.RunConfig{
			Rate:             "501K",
			Length:           288,
			Burst:            1,
			Run:              2,
			Iterations:       60,
			WarmupIterations: 10,
			WarmupRate:       "10K",
		}
		command := benchmark.clientCommand(runConfig)

		Convey("it runs the echo client script in the foreground", func() {
			So(command, ShouldContainSubstring, "/opt/benchmarks/scripts/grpc/echo-client")
			So(command, ShouldNotContainSubstring, "nohup")
			So(command, ShouldNotEndWith, "&")
		})

		Convey("it injects the full run configuration as runtime properties", func() {
			So(command, ShouldContainSubstring, "-Duk.co.real_logic.benchmarks.remote.output.directory=/opt/benchmarks/results")
			So(command, ShouldContainSubstring, "-Duk.co.real_logic.benchmarks.remote.output.prefix=grpc-streaming_501K_288_1_run2")
			So(command, ShouldContainSubstring, "-Duk.co.real_logic.benchmarks.remote.message.rate=501K")
			So(command, ShouldContainSubstring, "-Duk.co.real_logic.benchmarks.remote.batch.size=1")
			So(command, ShouldContainSubstring, "-Duk.co.real_logic.benchmarks.remote.message.length=288")
			So(command, ShouldContainSubstring, "-Duk.co.real_logic.benchmarks.remote.iterations=60")
			So(command, ShouldContainSubstring, "-Duk.co.real_logic.benchmarks.remote.warmup.iterations=10")
			So(command, ShouldContainSubstring, "-Duk.co.real_logic.benchmarks.remote.warmup.rate=10K")
		})

		Convey("configured client cores restrict the client through taskset", func() {
			config := testConfig()
			config.ClientCores = []int{2, 3}
			pinned := streamingBenchmark{config: config}.clientCommand(runConfig)
			So(pinned, ShouldContainSubstring, "taskset -c 2,3 /opt/benchmarks/scripts/grpc/echo-client")
		})

		Convey("run configuration properties precede the connection properties", func() {
			rateIndex := strings.Index(command, "remote.message.rate=")
			hostIndex := strings.Index(command, "grpc.remote.server.host=")
			So(rateIndex, ShouldBeGreaterThan, -1)
			So(hostIndex, ShouldBeGreaterThan, rateIndex)
		})
	})
}

func TestParseThroughput(t *testing.T) {
	Convey("When parsing client output", t, func() {
		Convey("the last reported rate wins", func() {
			output := "Send rate 498,000 msgs/sec\n" +
				"Send rate 501,000 msgs/sec\n" +
				"Receive rate: 500,500 msgs/sec\n"
			throughput, err := parseThroughput(strings.NewReader(output))
			So(err, ShouldBeNil)
			So(throughput, ShouldEqual, 500500)
		})

		Convey("singular msg/sec is accepted", func() {
			throughput, err := parseThroughput(strings.NewReader("rate 1 msg/sec"))
			So(err, ShouldBeNil)
			So(throughput, ShouldEqual, 1)
		})

		Convey("output without a rate report yields zero", func() {
			throughput, err := parseThroughput(strings.NewReader("warming up...\ndone\n"))
			So(err, ShouldBeNil)
			So(throughput, ShouldEqual, 0)
		})
	})
}
