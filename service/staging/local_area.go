/*
 * @module service/staging
 * @description 落地暂存区适配器，提供"列出新文件 + 读取文件内容"的最小接口
 * @architecture 适配器模式 - 外部暂存区边界
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 上游系统投递JSON文件到暂存目录 -> 摄取器按修改时间增量拉取
 * @rules 暂存区只读，文件的去重与血缘记录由摄取器负责
 * @dependencies os, path/filepath
 * @refs service/ingest
 */

package staging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// StagedFile 暂存区中的一个待摄取文件
type StagedFile struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Area 暂存区接口，摄取器只通过该接口访问落地文件
type Area interface {
	// ListNewFiles 列出指定时间之后投递的JSON文件，按文件名升序
	// since为零值时全量列举；摄取器每个节拍传零值全量重列，
	// 重复列举的幂等由摄取侧内容哈希去重保证，不依赖文件修改时间水位
	// （文件以保留修改时间的方式投递时水位会漏文件）
	ListNewFiles(ctx context.Context, since time.Time) ([]StagedFile, error)
	// ReadFile 读取单个暂存文件的完整内容
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

// LocalArea 本地目录实现的暂存区
type LocalArea struct {
	dir string
}

// NewLocalArea 创建本地暂存区适配器
func NewLocalArea(dir string) *LocalArea {
	return &LocalArea{dir: dir}
}

// ListNewFiles 列出目录下修改时间晚于since的JSON文件
func (a *LocalArea) ListNewFiles(ctx context.Context, since time.Time) ([]StagedFile, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("读取暂存目录失败: %w", err)
	}

	var files []StagedFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("读取暂存文件信息失败 [%s]: %w", entry.Name(), err)
		}
		if !info.ModTime().After(since) {
			continue
		}
		files = append(files, StagedFile{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// ReadFile 读取暂存文件内容
func (a *LocalArea) ReadFile(ctx context.Context, name string) ([]byte, error) {
	// 防止路径穿越，只允许目录内的裸文件名
	if filepath.Base(name) != name {
		return nil, fmt.Errorf("非法的暂存文件名: %s", name)
	}
	data, err := os.ReadFile(filepath.Join(a.dir, name))
	if err != nil {
		return nil, fmt.Errorf("读取暂存文件失败 [%s]: %w", name, err)
	}
	return data, nil
}
