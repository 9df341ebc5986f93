package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/venda-certa/internal/model"
)

type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) error
	// Tree 返回启用分类组成的森林，按名称排序
	Tree(ctx context.Context) ([]model.Category, error)
}

type categoryRepository struct{ db *gorm.DB }

func NewCategoryRepository(db *gorm.DB) CategoryRepository { return &categoryRepository{db: db} }

func (r *categoryRepository) Create(ctx context.Context, c *model.Category) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Omit("Children").Create(c).Error
}

func (r *categoryRepository) Tree(ctx context.Context) ([]model.Category, error) {
	var all []model.Category
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("name ASC").Find(&all).Error; err != nil {
		return nil, err
	}
	return buildTree(all), nil
}

// buildTree 父节点不存在（或已停用）的分类视为根
func buildTree(all []model.Category) []model.Category {
	byParent := make(map[string][]model.Category, len(all))
	known := make(map[string]bool, len(all))
	for _, c := range all {
		known[c.ID] = true
	}
	roots := make([]model.Category, 0)
	for _, c := range all {
		if c.ParentID == nil || !known[*c.ParentID] {
			roots = append(roots, c)
			continue
		}
		byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
	}

	var attach func(nodes []model.Category, depth int) []model.Category
	attach = func(nodes []model.Category, depth int) []model.Category {
		// 防止脏数据形成环
		if depth > len(all) {
			return nodes
		}
		for i := range nodes {
			if kids, ok := byParent[nodes[i].ID]; ok {
				nodes[i].Children = attach(kids, depth+1)
			}
		}
		return nodes
	}
	return attach(roots, 0)
}
