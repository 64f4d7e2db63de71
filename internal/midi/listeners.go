package midi

import (
    "fmt"
    "sync"

    "github.com/google/uuid"
    "github.com/samber/lo"
)

// Handler はイベントを受け取るコールバック。
type Handler func(Event)

// ListenerID は AddListener が返す登録ID。
type ListenerID string

type listener struct {
    id       ListenerID
    kind     EventKind
    channels []int // 空なら全チャネル
    fn       Handler
}

type listeners struct {
    mu   sync.RWMutex
    list []listener
}

func (l *listeners) add(kind EventKind, channels []int, fn Handler) (ListenerID, error) {
    if !kind.Valid() {
        return "", fmt.Errorf("%w: %q", ErrUnknownEventKind, kind)
    }
    if fn == nil {
        return "", fmt.Errorf("listener for %q is nil", kind)
    }
    for _, ch := range channels {
        if ch < 1 || ch > 16 {
            return "", fmt.Errorf("%w: %d", ErrInvalidChannel, ch)
        }
    }
    id := ListenerID(uuid.NewString())
    l.mu.Lock()
    l.list = append(l.list, listener{id: id, kind: kind, channels: lo.Uniq(channels), fn: fn})
    l.mu.Unlock()
    return id, nil
}

func (l *listeners) remove(id ListenerID) bool {
    l.mu.Lock()
    defer l.mu.Unlock()
    for i, x := range l.list {
        if x.id == id {
            l.list = append(l.list[:i:i], l.list[i+1:]...)
            return true
        }
    }
    return false
}

// removeKind は kind の登録を全て外す。kind が空なら全件。
func (l *listeners) removeKind(kind EventKind) {
    l.mu.Lock()
    defer l.mu.Unlock()
    if kind == "" {
        l.list = nil
        return
    }
    l.list = lo.Reject(l.list, func(x listener, _ int) bool { return x.kind == kind })
}

func (l *listeners) has(id ListenerID) bool {
    l.mu.RLock()
    defer l.mu.RUnlock()
    return lo.ContainsBy(l.list, func(x listener) bool { return x.id == id })
}

// dispatch は登録順にハンドラを呼ぶ。ロックは呼び出し前に外す。
func (l *listeners) dispatch(ev Event) {
    l.mu.RLock()
    targets := lo.Filter(l.list, func(x listener, _ int) bool {
        if x.kind != ev.Kind {
            return false
        }
        if !ev.Kind.ChannelScoped() || len(x.channels) == 0 {
            return true
        }
        return lo.Contains(x.channels, ev.Channel)
    })
    l.mu.RUnlock()
    for _, x := range targets {
        x.fn(ev)
    }
}
