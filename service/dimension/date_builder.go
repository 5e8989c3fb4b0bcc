/*
 * @module service/dimension/date_builder
 * @description 日期维度构建器，将清洗层出现过的比赛日期展开为日历属性
 * @architecture 分层数仓 - 维度构建
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 收集新日期增量 -> 按升序延续最大日期键分配 -> 事务写入
 * @rules 日期键只对新日期的增量分配，已分配的键永不重算，保证跨批次稳定
 * @dependencies cricketdw-service/service/models, gorm.io/gorm
 * @refs service/fact
 */

package dimension

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cricketdw-service/service/models"

	"gorm.io/gorm"
)

// SyncDates 构建日期维度
// 对全量已知日期重排名会让历史键漂移，因此这里只对新日期按升序
// 从当前最大键继续分配
func (b *Builder) SyncDates(ctx context.Context) (*BuildOutcome, error) {
	var dates []time.Time
	if err := b.db.WithContext(ctx).Model(&models.CleanMatchDetail{}).
		Distinct().Pluck("event_date", &dates).Error; err != nil {
		return nil, fmt.Errorf("查询比赛日期失败: %w", err)
	}

	var existing []models.DimDate
	if err := b.db.WithContext(ctx).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("查询已有日期维度失败: %w", err)
	}
	existingSet := make(map[string]bool, len(existing))
	var maxID uint
	for _, d := range existing {
		existingSet[dateKey(d.FullDate)] = true
		if d.DateID > maxID {
			maxID = d.DateID
		}
	}

	var newDates []time.Time
	seen := make(map[string]bool)
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		day := truncateToDay(d)
		key := dateKey(day)
		if existingSet[key] || seen[key] {
			continue
		}
		seen[key] = true
		newDates = append(newDates, day)
	}
	if len(newDates) == 0 {
		return &BuildOutcome{}, nil
	}
	sort.Slice(newDates, func(i, j int) bool { return newDates[i].Before(newDates[j]) })

	fresh := make([]models.DimDate, 0, len(newDates))
	for idx, d := range newDates {
		fresh = append(fresh, expandDate(maxID+uint(idx)+1, d))
	}

	if err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&fresh).Error
	}); err != nil {
		return nil, fmt.Errorf("写入日期维度失败: %w", err)
	}
	return &BuildOutcome{Inserted: int64(len(fresh))}, nil
}

// expandDate 将单个日期展开为日历属性
func expandDate(dateID uint, d time.Time) models.DimDate {
	isoWeekday := int(d.Weekday())
	if isoWeekday == 0 {
		isoWeekday = 7
	}
	return models.DimDate{
		DateID:     dateID,
		FullDate:   d,
		Day:        d.Day(),
		Month:      int(d.Month()),
		Year:       d.Year(),
		Quarter:    (int(d.Month())-1)/3 + 1,
		DayOfWeek:  isoWeekday,
		DayOfMonth: d.Day(),
		DayOfYear:  d.YearDay(),
		DayName:    d.Weekday().String(),
		IsWeekend:  d.Weekday() == time.Saturday || d.Weekday() == time.Sunday,
	}
}

func truncateToDay(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func dateKey(d time.Time) string {
	return d.Format("2006-01-02")
}
