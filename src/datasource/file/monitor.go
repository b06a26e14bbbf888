// monitor.go
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor 监控输入文件的变化
// fsnotify 监听的是文件所在目录，事件再按文件名过滤
type FileMonitor struct {
	watcher *fsnotify.Watcher
	files   map[string]struct{}
	lastMod map[string]time.Time
	mu      sync.Mutex
}

func NewFileMonitor(paths ...string) (*FileMonitor, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("没有需要监控的文件")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	m := &FileMonitor{
		watcher: watcher,
		files:   make(map[string]struct{}, len(paths)),
		lastMod: make(map[string]time.Time, len(paths)),
	}
	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		m.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return m, nil
}

// Watch 阻塞直到 ctx 结束或 watcher 关闭
// 被监控的文件写入或新建且修改时间变新时调用 handler(同步调用)
func (m *FileMonitor) Watch(ctx context.Context, handler func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !m.tracked(name) {
				continue
			}
			info, err := os.Stat(name)
			if err != nil {
				continue
			}

			m.mu.Lock()
			changed := info.ModTime().After(m.lastMod[name])
			if changed {
				m.lastMod[name] = info.ModTime()
			}
			m.mu.Unlock()

			if changed {
				handler(name)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func (m *FileMonitor) tracked(name string) bool {
	_, ok := m.files[name]
	return ok
}

// Close 停止监控，Watch 随之返回
func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}
