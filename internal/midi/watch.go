package midi

import (
    "context"
    "time"

    "github.com/samber/lo"
    "github.com/sirupsen/logrus"
)

// watchPort はポート一覧をポーリングし、name が消えたら一度だけ切断を通知して終わる。
// rtmidi はホットプラグ通知を持たないため。
func watchPort(ctx context.Context, list func() ([]string, error), name string, interval time.Duration, input *Input, log *logrus.Logger) {
    if interval <= 0 {
        interval = time.Second
    }
    t := time.NewTicker(interval)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
        }
        names, err := list()
        if err != nil {
            log.WithError(err).Debug("MIDI入力列挙に失敗（監視継続）")
            continue
        }
        if lo.Contains(names, name) {
            continue
        }
        log.WithField("port", name).Warn("MIDI入力デバイスが切断されました")
        input.HandleStateChange(StateChange{Connection: ConnectionClosed, State: StateDisconnected})
        return
    }
}
