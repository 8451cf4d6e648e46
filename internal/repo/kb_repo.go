package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/pkg/dbutil"
	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
)

type KnowledgeBaseRepo struct {
	db *sql.DB
}

func NewKnowledgeBaseRepo(db *sql.DB) *KnowledgeBaseRepo {
	return &KnowledgeBaseRepo{db: db}
}

var kbFields = []string{"id", "agent_id", "name", "description", "ctime", "mtime"}

func scanKB(rows *sql.Rows) (*model.KnowledgeBase, error) {
	var kb model.KnowledgeBase
	if err := rows.Scan(&kb.ID, &kb.AgentID, &kb.Name, &kb.Description, &kb.Ctime, &kb.Mtime); err != nil {
		return nil, err
	}
	return &kb, nil
}

func (r *KnowledgeBaseRepo) Create(ctx context.Context, kb *model.KnowledgeBase) error {
	data := map[string]interface{}{
		"id":          kb.ID,
		"agent_id":    kb.AgentID,
		"name":        kb.Name,
		"description": kb.Description,
		"ctime":       kb.Ctime,
		"mtime":       kb.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("knowledge_bases", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *KnowledgeBaseRepo) GetByID(ctx context.Context, agentID, kbID string) (*model.KnowledgeBase, error) {
	where := map[string]interface{}{
		"id":       kbID,
		"agent_id": agentID,
	}
	sqlStr, args, err := builder.BuildSelect("knowledge_bases", where, kbFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	return scanKB(rows)
}

func (r *KnowledgeBaseRepo) List(ctx context.Context, agentID string) ([]model.KnowledgeBase, error) {
	where := map[string]interface{}{
		"agent_id": agentID,
		"_orderby": "ctime desc",
	}
	sqlStr, args, err := builder.BuildSelect("knowledge_bases", where, kbFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	kbs := make([]model.KnowledgeBase, 0)
	for rows.Next() {
		kb, err := scanKB(rows)
		if err != nil {
			return nil, err
		}
		kbs = append(kbs, *kb)
	}
	return kbs, rows.Err()
}

func (r *KnowledgeBaseRepo) Update(ctx context.Context, kb *model.KnowledgeBase) error {
	where := map[string]interface{}{
		"id":       kb.ID,
		"agent_id": kb.AgentID,
	}
	update := map[string]interface{}{
		"name":        kb.Name,
		"description": kb.Description,
		"mtime":       kb.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("knowledge_bases", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *KnowledgeBaseRepo) Delete(ctx context.Context, agentID, kbID string) error {
	where := map[string]interface{}{
		"id":       kbID,
		"agent_id": agentID,
	}
	sqlStr, args, err := builder.BuildDelete("knowledge_bases", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
