// bus/cmd/selftest/main.go
//
// On-target check of the message bus: pub/sub, wildcards, retained
// messages, queue overflow and request/reply, the same ground the package
// tests cover on the host. go test cannot run on a flashed board, so this
// binary reports over the console and signals pass/fail through the
// build-tagged status hook next to it.
package main

import (
	"context"
	"sort"
	"time"

	"regmap-go/bus"
	"regmap-go/x/conv"
)

func logln(s string) { println(s) }

// --- helpers ----------------------------------------------------------------

func expectPayload(sub *bus.Subscription, want string, timeout time.Duration) (bool, string) {
	select {
	case got := <-sub.Channel():
		s, ok := got.Payload.(string)
		if !ok || s != want {
			return false, "unexpected payload"
		}
		return true, ""
	case <-time.After(timeout):
		return false, "timeout"
	}
}

func expectNone(sub *bus.Subscription, timeout time.Duration) (bool, string) {
	select {
	case <-sub.Channel():
		return false, "unexpected message"
	case <-time.After(timeout):
		return true, ""
	}
}

func drainPayloads(sub *bus.Subscription, n int, deadline time.Time) ([]string, bool) {
	var out []string
	for len(out) < n && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			if s, ok := m.Payload.(string); ok {
				out = append(out, s)
			} else {
				return nil, false
			}
		case <-time.After(10 * time.Millisecond):
		}
	}
	return out, len(out) == n
}

func sameUnordered(got, want []string) bool {
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// --- checks -----------------------------------------------------------------

func checkBasicPubSub() bool {
	b := bus.NewBus(4)
	conn := b.NewConnection("check")
	sub := conn.Subscribe(bus.Topic{"config", "geo"})

	conn.Publish(conn.NewMessage(bus.Topic{"config", "geo"}, "hello", false))
	ok, why := expectPayload(sub, "hello", 100*time.Millisecond)
	if !ok {
		logln("basic pubsub: " + why)
	}
	return ok
}

func checkRetained() bool {
	b := bus.NewBus(2)
	conn := b.NewConnection("check")

	conn.Publish(b.NewMessage(bus.Topic{"config", "geo"}, "persist", true))
	sub := conn.Subscribe(bus.Topic{"config", "geo"})
	ok, why := expectPayload(sub, "persist", 100*time.Millisecond)
	if !ok {
		logln("retained: " + why)
	}
	return ok
}

func checkSingleLevelWildcard() bool {
	b := bus.NewBus(16)
	c := b.NewConnection("check")

	s1 := c.Subscribe(bus.Topic{"a", "+", "c"})
	s2 := c.Subscribe(bus.Topic{"a", "+", "+"})
	sNo := c.Subscribe(bus.Topic{"a", "+", "d"})

	c.Publish(b.NewMessage(bus.Topic{"a", "b", "c"}, "m1", false))
	if ok, _ := expectPayload(s1, "m1", 200*time.Millisecond); !ok {
		logln("single wildcard: a+c missed")
		return false
	}
	if ok, _ := expectPayload(s2, "m1", 200*time.Millisecond); !ok {
		logln("single wildcard: a++ missed")
		return false
	}
	if ok, _ := expectNone(sNo, 60*time.Millisecond); !ok {
		logln("single wildcard: a+d leaked")
		return false
	}

	// A short topic never matches a longer pattern.
	c.Publish(b.NewMessage(bus.Topic{"a", "c"}, "m2", false))
	if ok, _ := expectNone(s1, 60*time.Millisecond); !ok {
		logln("single wildcard: short topic leaked")
		return false
	}
	return true
}

func checkMultiLevelWildcard() bool {
	b := bus.NewBus(16)
	c := b.NewConnection("check")

	sAHash := c.Subscribe(bus.Topic{"a", "#"})
	sHash := c.Subscribe(bus.Topic{"#"})
	sABHash := c.Subscribe(bus.Topic{"a", "b", "#"})

	// '#' also matches the empty remainder.
	c.Publish(b.NewMessage(bus.Topic{"a"}, "p1", false))
	if ok, _ := expectPayload(sAHash, "p1", 200*time.Millisecond); !ok {
		logln("multi wildcard: a# missed bare a")
		return false
	}
	if ok, _ := expectPayload(sHash, "p1", 200*time.Millisecond); !ok {
		logln("multi wildcard: # missed bare a")
		return false
	}
	if ok, _ := expectNone(sABHash, 60*time.Millisecond); !ok {
		logln("multi wildcard: ab# got bare a")
		return false
	}

	c.Publish(b.NewMessage(bus.Topic{"a", "b", "c"}, "p2", false))
	if ok, _ := expectPayload(sAHash, "p2", 200*time.Millisecond); !ok {
		logln("multi wildcard: a# missed abc")
		return false
	}
	if ok, _ := expectPayload(sABHash, "p2", 200*time.Millisecond); !ok {
		logln("multi wildcard: ab# missed abc")
		return false
	}
	return true
}

func checkRetainedWildcardDelivery() bool {
	b := bus.NewBus(32)
	c := b.NewConnection("check")

	c.Publish(b.NewMessage(bus.Topic{"a"}, "r0", true))
	c.Publish(b.NewMessage(bus.Topic{"a", "b"}, "r1", true))
	c.Publish(b.NewMessage(bus.Topic{"a", "b", "c"}, "r2", true))
	c.Publish(b.NewMessage(bus.Topic{"a", "x"}, "r3", true))

	sAll := c.Subscribe(bus.Topic{"a", "#"})
	got, ok := drainPayloads(sAll, 4, time.Now().Add(300*time.Millisecond))
	if !ok || !sameUnordered(got, []string{"r0", "r1", "r2", "r3"}) {
		logln("retained wildcard: a# set wrong")
		return false
	}

	sPlus := c.Subscribe(bus.Topic{"a", "+"})
	got, ok = drainPayloads(sPlus, 2, time.Now().Add(300*time.Millisecond))
	if !ok || !sameUnordered(got, []string{"r1", "r3"}) {
		logln("retained wildcard: a+ set wrong")
		return false
	}
	return true
}

func checkRetainedClear() bool {
	b := bus.NewBus(16)
	c := b.NewConnection("check")

	c.Publish(b.NewMessage(bus.Topic{"a", "b"}, "stale", true))
	c.Publish(b.NewMessage(bus.Topic{"a", "y"}, "other", true))
	c.Publish(b.NewMessage(bus.Topic{"a", "b"}, nil, true))

	s := c.Subscribe(bus.Topic{"a", "#"})
	got, ok := drainPayloads(s, 1, time.Now().Add(300*time.Millisecond))
	if !ok || got[0] != "other" {
		logln("retained clear: slot survived nil publish")
		return false
	}
	return true
}

func checkQueueDropsOldest() bool {
	b := bus.NewBus(2)
	c := b.NewConnection("check")
	sub := c.Subscribe(bus.Topic{"flood"})

	for _, p := range []string{"one", "two", "three"} {
		c.Publish(b.NewMessage(bus.Topic{"flood"}, p, false))
	}
	got, ok := drainPayloads(sub, 2, time.Now().Add(300*time.Millisecond))
	if !ok || got[0] != "two" || got[1] != "three" {
		logln("overflow: queue did not drop oldest")
		return false
	}
	return true
}

func checkIntTokens() bool {
	b := bus.NewBus(4)
	c := b.NewConnection("check")
	sub := c.Subscribe(bus.Topic{"device", 3, "+"})

	c.Publish(b.NewMessage(bus.Topic{"device", 3, "value"}, "v", false))
	if ok, _ := expectPayload(sub, "v", 100*time.Millisecond); !ok {
		logln("int tokens: missed")
		return false
	}
	// The string "3" is a different token from the int 3.
	c.Publish(b.NewMessage(bus.Topic{"device", "3", "value"}, "w", false))
	if ok, _ := expectNone(sub, 60*time.Millisecond); !ok {
		logln("int tokens: string token matched int")
		return false
	}
	return true
}

func checkRequestWait() bool {
	b := bus.NewBus(8)
	requester := b.NewConnection("requester")
	responder := b.NewConnection("responder")

	reqTopic := bus.Topic{"power", "status", "get"}
	respSub := responder.Subscribe(reqTopic)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if msg, ok := <-respSub.Channel(); ok {
			responder.Reply(msg, "OK", false)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	reply, err := requester.RequestWait(ctx, b.NewMessage(reqTopic, nil, false))
	responder.Unsubscribe(respSub)
	<-done

	if err != nil {
		logln("request wait: " + err.Error())
		return false
	}
	if got, ok := reply.Payload.(string); !ok || got != "OK" {
		logln("request wait: bad reply payload")
		return false
	}
	return true
}

func checkRequestTimeout() bool {
	b := bus.NewBus(8)
	requester := b.NewConnection("requester")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := requester.RequestWait(ctx, b.NewMessage(bus.Topic{"service", "noop"}, nil, false)); err == nil {
		logln("request timeout: reply from nowhere")
		return false
	}
	return true
}

func checkInvalidTokenPanics() (ok bool) {
	defer func() {
		ok = recover() != nil
		if !ok {
			logln("token check: non-comparable token accepted")
		}
	}()
	_ = bus.T([]byte{1, 2, 3})
	return false
}

// --- main -------------------------------------------------------------------

type check struct {
	name string
	fn   func() bool
}

func main() {
	// Give the USB console time to enumerate so the report shows up.
	time.Sleep(250 * time.Millisecond)
	statusInit()

	checks := []check{
		{"basic pubsub", checkBasicPubSub},
		{"retained", checkRetained},
		{"single-level wildcard", checkSingleLevelWildcard},
		{"multi-level wildcard", checkMultiLevelWildcard},
		{"retained wildcard delivery", checkRetainedWildcardDelivery},
		{"retained clear", checkRetainedClear},
		{"queue overflow", checkQueueDropsOldest},
		{"int tokens", checkIntTokens},
		{"request wait", checkRequestWait},
		{"request timeout", checkRequestTimeout},
		{"invalid token panics", checkInvalidTokenPanics},
	}

	passed, failed := 0, 0
	logln("== bus self-test ==")
	for _, c := range checks {
		if c.fn() {
			logln("[pass] " + c.name)
			passed++
		} else {
			logln("[FAIL] " + c.name)
			failed++
		}
		time.Sleep(10 * time.Millisecond)
	}
	var num [8]byte
	logln("== done: " + string(conv.Itoa(num[:], int64(passed))) + " passed, " +
		string(conv.Itoa(num[:], int64(failed))) + " failed ==")
	statusDone(failed == 0)
}
