package obsws

import (
    "context"
    "errors"
    "fmt"
)

// SceneNames は最初の接続先のシーン一覧を返す。
func (s *Switcher) SceneNames(ctx context.Context) ([]string, error) {
    if len(s.clients) == 0 {
        return nil, errors.New("OBS に接続されていません")
    }
    cw := s.clients[0]
    var names []string
    err := withTimeout(ctx, func() error {
        lst, err := cw.c.Scenes.GetSceneList(nil)
        if err != nil {
            return err
        }
        names = make([]string, 0, len(lst.Scenes))
        for _, sc := range lst.Scenes {
            names = append(names, sc.SceneName)
        }
        return nil
    }, s.timeout)
    if err != nil {
        return nil, fmt.Errorf("[%s] シーン一覧取得失敗: %w", cw.addr, err)
    }
    return names, nil
}
