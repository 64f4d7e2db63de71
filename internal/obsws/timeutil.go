package obsws

import (
    "context"
    "runtime"
    "time"
)

// waitUntil は指定時刻まで待機する。大部分は Timer で待ち、最後のわずかな時間は
// Gosched を挟みつつスピンして精度を上げる。ctx が終わったらそのエラーを返す。
func waitUntil(ctx context.Context, t time.Time, spinWin time.Duration) error {
    if spinWin < 0 {
        spinWin = 0
    }
    if d := time.Until(t); d > spinWin {
        timer := time.NewTimer(d - spinWin)
        defer timer.Stop()
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-timer.C:
        }
    }
    for time.Until(t) > 0 {
        if err := ctx.Err(); err != nil {
            return err
        }
        runtime.Gosched()
    }
    return nil
}
