package process

import (
	"io"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/manuelbernhardt/benchmarks/pkg/executor/mocks"
)

// successfulHandle returns a terminated task handle mock whose stdout
// contains the given content.
func successfulHandle(stdout string) *mocks.TaskHandle {
	file, err := os.CreateTemp("", "process_test_stdout_")
	if err != nil {
		panic(err)
	}
	file.WriteString(stdout)
	file.Seek(0, io.SeekStart)

	handle := new(mocks.TaskHandle)
	handle.On("Wait", time.Duration(0)).Return(true)
	handle.On("ExitCode").Return(0, nil)
	handle.On("StdoutFile").Return(file, nil)
	handle.On("Clean").Return(nil)
	handle.On("EraseOutput").Return(nil)
	return handle
}

func failedHandle(exitCode int) *mocks.TaskHandle {
	handle := new(mocks.TaskHandle)
	handle.On("Wait", time.Duration(0)).Return(true)
	handle.On("ExitCode").Return(exitCode, nil)
	handle.On("Clean").Return(nil)
	handle.On("EraseOutput").Return(nil)
	return handle
}

func TestCommandSnippets(t *testing.T) {
	Convey("While building remote process snippets", t, func() {
		Convey("FindPidCommand filters matches to the java runtime and returns the first one", func() {
			So(FindPidCommand("streaming-server"), ShouldEqual,
				`pgrep -f -l 'streaming-server' | awk '/java/ {print $1; exit}'`)
		})

		Convey("KillCommand succeeds as a no-op when nothing matches", func() {
			So(KillCommand("streaming-server"), ShouldEqual,
				`pkill -9 -f 'streaming-server' || true`)
			So(KillCommand("streaming-server"), ShouldEndWith, "|| true")
		})

		Convey("findTidCommand resolves a thread of a given pid by name", func() {
			So(findTidCommand(4242, "echo-out"), ShouldEqual,
				`ps -L -p 4242 -o tid=,comm= | awk '/echo-out/ {print $1; exit}'`)
		})
	})
}

func TestAwaitPid(t *testing.T) {
	Convey("While waiting for a remote process to start", t, func() {
		exec := new(mocks.Executor)
		exec.On("Name").Return("Mock Executor")
		findCommand := FindPidCommand("streaming-server")

		Convey("When the pid appears only after several polling cycles, AwaitPid does not resolve early", func() {
			exec.On("Execute", findCommand).Return(successfulHandle(""), nil).Once()
			exec.On("Execute", findCommand).Return(successfulHandle(""), nil).Once()
			exec.On("Execute", findCommand).Return(successfulHandle("4242\n"), nil).Once()

			pid, err := AwaitPid(exec, "streaming-server")
			So(err, ShouldBeNil)
			So(pid, ShouldEqual, 4242)
			exec.AssertNumberOfCalls(t, "Execute", 3)
		})

		Convey("When the remote expression fails, the error propagates", func() {
			exec.On("Execute", findCommand).Return(failedHandle(1), nil).Once()

			_, err := AwaitPid(exec, "streaming-server")
			So(err, ShouldNotBeNil)
		})

		Convey("When the resolved pid is not numeric, an error is returned", func() {
			exec.On("Execute", findCommand).Return(successfulHandle("gibberish"), nil).Once()

			_, _, err := FindPid(exec, "streaming-server")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestKill(t *testing.T) {
	Convey("While killing remote processes", t, func() {
		exec := new(mocks.Executor)
		exec.On("Name").Return("Mock Executor")
		killCommand := KillCommand("streaming-server")

		Convey("Invoking kill twice in a row yields the same end state", func() {
			// pkill with no match still exits zero through `|| true`.
			exec.On("Execute", killCommand).Return(successfulHandle(""), nil).Twice()

			So(Kill(exec, "streaming-server"), ShouldBeNil)
			So(Kill(exec, "streaming-server"), ShouldBeNil)
			exec.AssertNumberOfCalls(t, "Execute", 2)
		})
	})
}

func TestPinThread(t *testing.T) {
	Convey("While pinning a benchmark thread to a core", t, func() {
		exec := new(mocks.Executor)
		exec.On("Name").Return("Mock Executor")
		tidCommand := findTidCommand(4242, "echo-out")

		Convey("The thread is resolved by polling and then pinned with taskset", func() {
			exec.On("Execute", tidCommand).Return(successfulHandle(""), nil).Once()
			exec.On("Execute", tidCommand).Return(successfulHandle("77"), nil).Once()
			exec.On("Execute", "taskset -c -p 3 77").Return(successfulHandle("pinned"), nil).Once()

			tid, err := PinThread(exec, 4242, "echo-out", 3)
			So(err, ShouldBeNil)
			So(tid, ShouldEqual, 77)
			exec.AssertExpectations(t)
		})
	})
}
