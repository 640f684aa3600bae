package executor

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSSHConfig(t *testing.T) {
	Convey("While building SSH configurations", t, func() {
		Convey("A complete configuration validates and carries default tuning", func() {
			config, err := NewSSHConfig("perf", "server-node", DefaultSSHPort, "/home/perf/.ssh/id_rsa")
			So(err, ShouldBeNil)
			So(config.ConnectionAttempts, ShouldEqual, DefaultConnectionAttempts)
			So(config.ConnectTimeout, ShouldEqual, 10*time.Second)
			So(config.KeepaliveInterval, ShouldEqual, 5*time.Second)
		})

		Convey("A missing user is a configuration error", func() {
			_, err := NewSSHConfig("", "server-node", DefaultSSHPort, "/home/perf/.ssh/id_rsa")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "user")
		})

		Convey("A missing host is a configuration error", func() {
			_, err := NewSSHConfig("perf", "", DefaultSSHPort, "/home/perf/.ssh/id_rsa")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "host")
		})

		Convey("A missing key path is a configuration error", func() {
			_, err := NewSSHConfig("perf", "server-node", DefaultSSHPort, "")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "key")
		})

		Convey("An invalid port is a configuration error", func() {
			_, err := NewSSHConfig("perf", "server-node", 0, "/home/perf/.ssh/id_rsa")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "port")
		})

		Convey("NewRemote rejects an invalid configuration before any command runs", func() {
			_, err := NewRemote(SSHConfig{Host: "server-node"})
			So(err, ShouldNotBeNil)
		})
	})
}
