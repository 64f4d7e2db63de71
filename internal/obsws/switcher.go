package obsws

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "sync"
    "time"

    "github.com/andreykaipov/goobs"
    "github.com/andreykaipov/goobs/api/requests/scenes"
    "github.com/sirupsen/logrus"
)

type Options struct {
    Addrs     []string
    Password  string   // common password (fallback)
    Passwords []string // optional: aligned with Addrs for per-connection passwords
    Timeout   time.Duration
    SpinWin   time.Duration // 発火時刻直前のスピン待機時間
    Log       *logrus.Logger
}

// passwordFor は i 番目の接続に使うパスワード。空は認証なし。
func (o Options) passwordFor(i int) string {
    if len(o.Passwords) == len(o.Addrs) {
        return strings.TrimSpace(o.Passwords[i])
    }
    return strings.TrimSpace(o.Password)
}

type clientWrap struct {
    addr string
    c    *goobs.Client
}

// Switcher は複数の OBS への接続を保持し、シーン切替を同時に発火する。
type Switcher struct {
    clients []clientWrap
    timeout time.Duration
    spinWin time.Duration
    log     *logrus.Logger
}

// Dial は全アドレスへ接続する。接続できたものだけで動作し、全滅ならエラー。
func Dial(opts Options) (*Switcher, error) {
    log := opts.Log
    if log == nil {
        log = logrus.StandardLogger()
    }
    s := &Switcher{timeout: opts.Timeout, spinWin: opts.SpinWin, log: log}
    var failed []string
    for i, raw := range opts.Addrs {
        a := NormalizeObsAddr(raw)
        if a == "" {
            continue
        }
        var c *goobs.Client
        var err error
        if pw := opts.passwordFor(i); pw == "" {
            c, err = goobs.New(a)
        } else {
            c, err = goobs.New(a, goobs.WithPassword(pw))
        }
        if err != nil {
            log.WithError(err).Warnf("接続失敗[%d]: ws://%s", i, a)
            failed = append(failed, a)
            continue
        }
        s.clients = append(s.clients, clientWrap{addr: a, c: c})
        log.Infof("接続完了[%d]: ws://%s", i, a)
    }
    if len(s.clients) == 0 {
        if len(failed) > 0 {
            return nil, fmt.Errorf("全ての接続に失敗しました。対象: %s", strings.Join(failed, ", "))
        }
        return nil, errors.New("OBS のアドレスが指定されていません")
    }
    return s, nil
}

// SwitchSceneAt は at の時刻に全インスタンスで同時にシーンを切り替える。
// at がゼロ値（または過去）なら即時。個別の失敗はまとめて返す。
func (s *Switcher) SwitchSceneAt(ctx context.Context, scene string, at time.Time) error {
    if scene == "" {
        return errors.New("シーン名が空です")
    }
    var wg sync.WaitGroup
    errCh := make(chan error, len(s.clients))
    for _, cw := range s.clients {
        wg.Add(1)
        go func(cw clientWrap) {
            defer wg.Done()
            if err := waitUntil(ctx, at, s.spinWin); err != nil {
                errCh <- fmt.Errorf("[%s] %w", cw.addr, err)
                return
            }
            // goobs のリクエストにタイムアウトが無いので goroutine でラップ
            call := func() error {
                _, err := cw.c.Scenes.SetCurrentProgramScene(&scenes.SetCurrentProgramSceneParams{
                    SceneName: &scene,
                })
                return err
            }
            if err := withTimeout(ctx, call, s.timeout); err != nil {
                errCh <- fmt.Errorf("[%s] SetCurrentProgramScene 失敗: %w", cw.addr, err)
                return
            }
            s.log.WithField("addr", cw.addr).Debugf("シーン切替完了: %s", scene)
        }(cw)
    }
    wg.Wait()
    close(errCh)

    var errs []error
    for e := range errCh {
        errs = append(errs, e)
    }
    return errors.Join(errs...)
}

// Close は全接続を切断する。
func (s *Switcher) Close() {
    for _, cw := range s.clients {
        if err := cw.c.Disconnect(); err != nil {
            s.log.WithError(err).Debugf("[%s] 切断失敗", cw.addr)
        }
    }
    s.clients = nil
}

func withTimeout(ctx context.Context, fn func() error, d time.Duration) error {
    if d > 0 {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, d)
        defer cancel()
    }
    ch := make(chan error, 1)
    go func() { ch <- fn() }()
    select {
    case err := <-ch:
        return err
    case <-ctx.Done():
        if errors.Is(ctx.Err(), context.DeadlineExceeded) {
            return fmt.Errorf("timeout after %s", d)
        }
        return ctx.Err()
    }
}
