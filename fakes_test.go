package main

import (
	"context"
	"io"
	"strings"
	"sync"
)

// fakeRunner answers adb commands by prefix and records every command
type fakeRunner struct {
	mu       sync.Mutex
	commands []string
	handlers []fakeHandler
}

type fakeHandler struct {
	prefix string
	fn     func(cmd string) (string, error)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{}
}

// on registers a handler for commands starting with prefix. Later
// registrations win.
func (r *fakeRunner) on(prefix string, fn func(cmd string) (string, error)) *fakeRunner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append([]fakeHandler{{prefix: prefix, fn: fn}}, r.handlers...)
	return r
}

// reply registers a fixed response for prefix
func (r *fakeRunner) reply(prefix, output string, err error) *fakeRunner {
	return r.on(prefix, func(string) (string, error) { return output, err })
}

func (r *fakeRunner) RunAdbCommandWithContext(ctx context.Context, deviceId string, fullCmd string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	r.commands = append(r.commands, fullCmd)
	handlers := r.handlers
	r.mu.Unlock()

	for _, h := range handlers {
		if strings.HasPrefix(fullCmd, h.prefix) {
			return h.fn(fullCmd)
		}
	}
	return "", nil
}

// Commands returns recorded commands
func (r *fakeRunner) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.commands...)
}

// CommandsWithPrefix returns recorded commands starting with prefix
func (r *fakeRunner) CommandsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range r.Commands() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// fakeStreamer serves a fixed stream for uiautomator events
type fakeStreamer struct {
	stream io.ReadCloser
	err    error
	args   []string
}

func (s *fakeStreamer) StreamAdbCommand(ctx context.Context, deviceId string, args ...string) (io.ReadCloser, error) {
	s.args = args
	return s.stream, s.err
}

// Sample dump of a feed screen: a recycler with two items and a back button
// whose clickable parent is the toolbar
const feedDumpXML = `UI hierchary dumped to: /data/local/tmp/autoplay_view.xml
<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node index="0" text="" resource-id="" class="android.widget.FrameLayout" package="com.smile.gifmaker" content-desc="" clickable="false" enabled="true" scrollable="false" bounds="[0,0][1080,2400]">
    <node index="0" text="" resource-id="com.smile.gifmaker:id/toolbar" class="android.view.ViewGroup" package="com.smile.gifmaker" content-desc="" clickable="true" enabled="true" scrollable="false" bounds="[0,0][1080,200]">
      <node index="0" text="" resource-id="com.smile.gifmaker:id/back_btn" class="android.widget.ImageView" package="com.smile.gifmaker" content-desc="Back" clickable="false" enabled="true" scrollable="false" bounds="[0,50][100,150]" />
      <node index="1" text="Featured &amp; Hot" resource-id="com.smile.gifmaker:id/title" class="android.widget.TextView" package="com.smile.gifmaker" content-desc="" clickable="false" enabled="true" scrollable="false" bounds="[200,50][880,150]" />
    </node>
    <node index="1" text="" resource-id="com.smile.gifmaker:id/recycler_view" class="androidx.recyclerview.widget.RecyclerView" package="com.smile.gifmaker" content-desc="" clickable="false" enabled="true" scrollable="true" bounds="[0,200][1080,2200]">
      <node index="0" text="" resource-id="com.smile.gifmaker:id/container" class="android.widget.FrameLayout" package="com.smile.gifmaker" content-desc="Video one" clickable="true" enabled="true" scrollable="false" bounds="[0,200][540,900]" />
      <node index="1" text="" resource-id="com.smile.gifmaker:id/container" class="android.widget.FrameLayout" package="com.smile.gifmaker" content-desc="Video two" clickable="true" enabled="true" scrollable="false" bounds="[540,200][1080,900]" />
    </node>
  </node>
</hierarchy>
`

// dumpRunner returns a runner that serves feedDumpXML for every dump
func dumpRunner() *fakeRunner {
	return newFakeRunner().reply("shell uiautomator dump", feedDumpXML, nil)
}
