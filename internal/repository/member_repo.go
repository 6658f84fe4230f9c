package repository

import (
	"context"

	"github.com/Eursukkul/attendance-service/internal/models"
	"gorm.io/gorm"
)

type MemberRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Member, error)
	MarkOnline(ctx context.Context, tx *gorm.DB, id uint) error
}

type memberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) FindByID(ctx context.Context, id uint) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).First(&member, id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) MarkOnline(ctx context.Context, tx *gorm.DB, id uint) error {
	return pick(r.db, tx).WithContext(ctx).
		Model(&models.Member{}).
		Where("id = ?", id).
		Update("status", models.MemberOnline).Error
}
