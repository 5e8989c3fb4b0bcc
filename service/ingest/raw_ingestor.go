/*
 * @module service/ingest/raw_ingestor
 * @description 原始层摄取器，将暂存区JSON文件逐个解析后追加写入原始表
 * @architecture 分层数仓 - 原始层摄取
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 列出新文件 -> 逐文件解析 -> 内容哈希去重 -> 追加写入原始表
 * @rules 单文件解析失败跳过并记录，不中断整批；已摄取的内容哈希直接跳过
 * @dependencies cricketdw-service/service/staging, cricketdw-service/service/models, gorm.io/gorm
 * @refs service/tracker, service/flatten
 */

package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"cricketdw-service/service/models"
	"cricketdw-service/service/staging"

	"gorm.io/gorm"
)

// RawIngestor 原始层摄取器
type RawIngestor struct {
	db   *gorm.DB
	area staging.Area
}

// NewRawIngestor 创建原始层摄取器实例
func NewRawIngestor(db *gorm.DB, area staging.Area) *RawIngestor {
	return &RawIngestor{db: db, area: area}
}

// IngestResult 单批摄取的结果统计
type IngestResult struct {
	Ingested int      `json:"ingested"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// rawDocument 落地文件的信封结构，嵌套内容原样保留
type rawDocument struct {
	Meta    models.JSONB             `json:"meta"`
	Info    models.JSONB             `json:"info"`
	Innings models.JSONBGenericArray `json:"innings"`
}

// IngestNewFiles 摄取指定时间之后落地的所有新文件
// 错误策略为 on_error=continue：批次允许部分成功，逐文件错误收集到结果中
func (i *RawIngestor) IngestNewFiles(ctx context.Context, since time.Time) (*IngestResult, error) {
	files, err := i.area.ListNewFiles(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("列出暂存文件失败: %w", err)
	}

	result := &IngestResult{}
	for rowNumber, file := range files {
		if err := i.ingestFile(ctx, file.Name, rowNumber, result); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", file.Name, err))
			log.Printf("摄取文件失败，跳过继续 [%s]: %v", file.Name, err)
		}
	}
	return result, nil
}

// ingestFile 摄取单个文件
func (i *RawIngestor) ingestFile(ctx context.Context, name string, rowNumber int, result *IngestResult) error {
	content, err := i.area.ReadFile(ctx, name)
	if err != nil {
		return err
	}

	sum := sha256.Sum256(content)
	contentHash := hex.EncodeToString(sum[:])

	// 同一内容哈希已摄取过则跳过，保证重复投递的幂等性
	var existing int64
	if err := i.db.WithContext(ctx).Model(&models.RawMatchRecord{}).
		Where("content_hash = ?", contentHash).Count(&existing).Error; err != nil {
		return fmt.Errorf("查询内容哈希失败: %w", err)
	}
	if existing > 0 {
		result.Skipped++
		return nil
	}

	var doc rawDocument
	if err := json.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("解析JSON失败: %w", err)
	}

	record := &models.RawMatchRecord{
		MatchID:     matchIDFromFileName(name),
		Meta:        doc.Meta,
		Info:        doc.Info,
		Innings:     doc.Innings,
		SourceFile:  name,
		RowNumber:   rowNumber,
		ContentHash: contentHash,
		IngestedAt:  time.Now(),
	}
	if err := i.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("写入原始记录失败: %w", err)
	}

	result.Ingested++
	return nil
}

// matchIDFromFileName 从文件名推导比赛标识（去掉扩展名）
func matchIDFromFileName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
