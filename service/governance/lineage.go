/*
 * @module service/governance/lineage
 * @description 数据血缘服务，维护数据集之间的血缘边并提供上下游追溯与影响分析
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 血缘边登记 -> 上下游广度遍历 -> 影响分析汇总受影响数据集与规则
 * @rules 自环与重复边在落库前拦截；遍历带访问去重，血缘图存在环时也能终止
 * @dependencies gorm.io/gorm, service/models
 * @refs governance_service.go, scorer.go
 */

package governance

import (
	"context"
	"fmt"

	"datagov-service/service/models"

	"gorm.io/gorm"
)

// 血缘遍历深度限制
const (
	lineageDefaultDepth = 3
	lineageMaxDepth     = 10
)

// LineageService 数据血缘服务
type LineageService struct {
	db *gorm.DB
}

// NewLineageService 创建数据血缘服务
func NewLineageService(db *gorm.DB) *LineageService {
	return &LineageService{db: db}
}

// AddEdge 登记血缘边，源与目标数据集必须已注册
func (s *LineageService) AddEdge(ctx context.Context, req *AddLineageEdgeRequest) (*models.LineageEdge, error) {
	if req.SourceDatasetID == req.TargetDatasetID {
		return nil, fmt.Errorf("%w: %s", ErrLineageSelfLoop, req.SourceDatasetID)
	}
	if !isValidTransformType(req.TransformType) {
		return nil, fmt.Errorf("无效的加工类型: %s", req.TransformType)
	}

	for _, id := range []string{req.SourceDatasetID, req.TargetDatasetID} {
		var dataset models.Dataset
		if err := s.db.WithContext(ctx).First(&dataset, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
			}
			return nil, fmt.Errorf("查询数据集失败: %w", err)
		}
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.LineageEdge{}).
		Where("source_dataset_id = ? AND target_dataset_id = ?", req.SourceDatasetID, req.TargetDatasetID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("查询血缘边失败: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: %s -> %s", ErrLineageEdgeExists, req.SourceDatasetID, req.TargetDatasetID)
	}

	edge := &models.LineageEdge{
		SourceDatasetID: req.SourceDatasetID,
		TargetDatasetID: req.TargetDatasetID,
		TransformType:   req.TransformType,
		Description:     req.Description,
		CreatedBy:       req.CreatedBy,
	}
	if err := s.db.WithContext(ctx).Create(edge).Error; err != nil {
		return nil, fmt.Errorf("登记血缘边失败: %w", err)
	}
	return edge, nil
}

// Graph 获取数据集的血缘视图，按方向返回上游和/或下游节点
func (s *LineageService) Graph(ctx context.Context, datasetID, direction string, depth int) (*LineageGraph, error) {
	dataset, err := s.loadDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	depth = normalizeDepth(depth)

	graph := &LineageGraph{
		Dataset: lineageNodeOf(dataset, 0),
		Depth:   depth,
	}
	if direction == LineageDirectionUpstream || direction == LineageDirectionBoth || direction == "" {
		graph.Upstream, err = s.traverse(ctx, datasetID, depth, true)
		if err != nil {
			return nil, err
		}
	}
	if direction == LineageDirectionDownstream || direction == LineageDirectionBoth || direction == "" {
		graph.Downstream, err = s.traverse(ctx, datasetID, depth, false)
		if err != nil {
			return nil, err
		}
	}
	return graph, nil
}

// Impact 影响分析：数据集变更时汇总全部下游数据集、受影响的启用规则数与受保护数据集
func (s *LineageService) Impact(ctx context.Context, datasetID string) (*LineageImpact, error) {
	if _, err := s.loadDataset(ctx, datasetID); err != nil {
		return nil, err
	}

	downstream, err := s.traverse(ctx, datasetID, lineageMaxDepth, false)
	if err != nil {
		return nil, err
	}

	impact := &LineageImpact{
		DatasetID:  datasetID,
		Downstream: downstream,
	}
	for _, node := range downstream {
		var ruleCount int64
		if err := s.db.WithContext(ctx).Model(&models.QualityRule{}).
			Where("dataset_id = ? AND is_active = ?", node.DatasetID, true).
			Count(&ruleCount).Error; err != nil {
			return nil, fmt.Errorf("统计受影响规则失败: %w", err)
		}
		impact.AffectedRules += int(ruleCount)
		if node.Sensitivity == models.SensitivityPII || node.Sensitivity == models.SensitivityPHI {
			impact.ProtectedDatasets = append(impact.ProtectedDatasets, node.DatasetID)
		}
	}
	impact.AffectedDatasets = len(downstream)
	return impact, nil
}

// traverse 广度优先遍历血缘图，upstream为true时逆着血缘边方向走
func (s *LineageService) traverse(ctx context.Context, datasetID string, depth int, upstream bool) ([]LineageNode, error) {
	visited := map[string]bool{datasetID: true}
	frontier := []string{datasetID}
	var nodes []LineageNode

	for level := 1; level <= depth && len(frontier) > 0; level++ {
		var edges []models.LineageEdge
		query := s.db.WithContext(ctx).Order("created_at ASC, id ASC")
		if upstream {
			query = query.Where("target_dataset_id IN ?", frontier).Preload("SourceDataset")
		} else {
			query = query.Where("source_dataset_id IN ?", frontier).Preload("TargetDataset")
		}
		if err := query.Find(&edges).Error; err != nil {
			return nil, fmt.Errorf("查询血缘边失败: %w", err)
		}

		frontier = frontier[:0]
		for i := range edges {
			neighbor := edges[i].SourceDataset
			if !upstream {
				neighbor = edges[i].TargetDataset
			}
			if neighbor == nil || visited[neighbor.ID] {
				continue
			}
			visited[neighbor.ID] = true
			nodes = append(nodes, lineageNodeOf(neighbor, level))
			frontier = append(frontier, neighbor.ID)
		}
	}
	return nodes, nil
}

// loadDataset 加载数据集，不存在时返回ErrDatasetNotFound
func (s *LineageService) loadDataset(ctx context.Context, id string) (*models.Dataset, error) {
	var dataset models.Dataset
	if err := s.db.WithContext(ctx).First(&dataset, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
		}
		return nil, fmt.Errorf("查询数据集失败: %w", err)
	}
	return &dataset, nil
}

// lineageNodeOf 构造血缘节点
func lineageNodeOf(dataset *models.Dataset, depth int) LineageNode {
	return LineageNode{
		DatasetID:   dataset.ID,
		Name:        dataset.Name,
		Sensitivity: dataset.Sensitivity,
		Depth:       depth,
	}
}

// isValidTransformType 校验血缘边加工类型取值
func isValidTransformType(transformType string) bool {
	switch transformType {
	case "", models.TransformTypeETL, models.TransformTypeAggregation,
		models.TransformTypeCopy, models.TransformTypeExport:
		return true
	}
	return false
}

// normalizeDepth 规范遍历深度
func normalizeDepth(depth int) int {
	if depth <= 0 {
		return lineageDefaultDepth
	}
	if depth > lineageMaxDepth {
		return lineageMaxDepth
	}
	return depth
}
