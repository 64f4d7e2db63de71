package midi

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    logtest "github.com/sirupsen/logrus/hooks/test"
)

// fakeLister は呼ばれるたびに次の一覧を返す。尽きたら最後の一覧を返し続ける。
type fakeLister struct {
    mu    sync.Mutex
    lists [][]string
    errs  []error
    calls int
}

func (l *fakeLister) list() ([]string, error) {
    l.mu.Lock()
    defer l.mu.Unlock()
    i := l.calls
    l.calls++
    if i < len(l.errs) && l.errs[i] != nil {
        return nil, l.errs[i]
    }
    if i >= len(l.lists) {
        i = len(l.lists) - 1
    }
    return l.lists[i], nil
}

func TestWatchPortReportsVanishedPortOnce(t *testing.T) {
    log, _ := logtest.NewNullLogger()
    port := &fakePort{name: "Dev"}
    in := NewInput(port)
    if _, err := in.Open(); err != nil {
        t.Fatal(err)
    }
    var mu sync.Mutex
    var events []EventKind
    for _, k := range []EventKind{Closed, Disconnected} {
        if _, err := in.AddListener(k, nil, func(ev Event) {
            mu.Lock()
            events = append(events, ev.Kind)
            mu.Unlock()
        }); err != nil {
            t.Fatal(err)
        }
    }

    lister := &fakeLister{
        lists: [][]string{{"Other", "Dev"}, {"Dev"}, {"Other"}, {}},
        errs:  []error{nil, errors.New("busy")},
    }
    done := make(chan struct{})
    go func() {
        watchPort(context.Background(), lister.list, "Dev", time.Millisecond, in, log)
        close(done)
    }()
    select {
    case <-done:
    case <-time.After(time.Second):
        t.Fatalf("watcher did not stop after the port vanished")
    }

    mu.Lock()
    defer mu.Unlock()
    if len(events) != 1 || events[0] != Disconnected {
        t.Fatalf("events=%v; want exactly one disconnected", events)
    }
    if in.State() != StateDisconnected {
        t.Fatalf("state=%s", in.State())
    }
}

func TestWatchPortStopsOnCancel(t *testing.T) {
    log, _ := logtest.NewNullLogger()
    in := NewInput(&fakePort{name: "Dev"})
    disconnected := collect(t, in, Disconnected)
    lister := &fakeLister{lists: [][]string{{"Dev"}}}

    ctx, cancel := context.WithCancel(context.Background())
    done := make(chan struct{})
    go func() {
        watchPort(ctx, lister.list, "Dev", time.Millisecond, in, log)
        close(done)
    }()
    time.Sleep(10 * time.Millisecond)
    cancel()
    select {
    case <-done:
    case <-time.After(time.Second):
        t.Fatalf("watcher ignored cancellation")
    }
    if len(*disconnected) != 0 {
        t.Fatalf("present port reported as disconnected")
    }
}
