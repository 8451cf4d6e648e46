package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/pkg/dbutil"
	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
)

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

var documentFields = []string{
	"id", "knowledge_base_id", "agent_id", "filename", "content_type",
	"status", "error", "chunk_count", "ctime", "mtime",
}

func scanDocument(rows *sql.Rows) (*model.Document, error) {
	var doc model.Document
	if err := rows.Scan(&doc.ID, &doc.KnowledgeBaseID, &doc.AgentID, &doc.Filename,
		&doc.ContentType, &doc.Status, &doc.Error, &doc.ChunkCount, &doc.Ctime, &doc.Mtime); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":                doc.ID,
		"knowledge_base_id": doc.KnowledgeBaseID,
		"agent_id":          doc.AgentID,
		"filename":          doc.Filename,
		"content_type":      doc.ContentType,
		"status":            string(doc.Status),
		"error":             doc.Error,
		"chunk_count":       doc.ChunkCount,
		"ctime":             doc.Ctime,
		"mtime":             doc.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
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

func (r *DocumentRepo) GetByID(ctx context.Context, agentID, docID string) (*model.Document, error) {
	where := map[string]interface{}{
		"id":       docID,
		"agent_id": agentID,
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
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
	return scanDocument(rows)
}

func (r *DocumentRepo) ListByKB(ctx context.Context, agentID, kbID string, limit, offset uint) ([]model.Document, error) {
	where := map[string]interface{}{
		"agent_id":          agentID,
		"knowledge_base_id": kbID,
		"_orderby":          "ctime desc",
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// ListByStatusOlderThan returns documents stuck in status whose mtime is
// before the cutoff, oldest first. The retry job uses it to requeue work
// lost to a crash.
func (r *DocumentRepo) ListByStatusOlderThan(ctx context.Context, status model.ProcessingStatus, beforeMtime int64, limit uint) ([]model.Document, error) {
	where := map[string]interface{}{
		"status":   string(status),
		"mtime <":  beforeMtime,
		"_orderby": "mtime asc",
	}
	if limit > 0 {
		where["_limit"] = []uint{0, limit}
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) SetChunkCount(ctx context.Context, agentID, docID string, chunkCount int, mtime int64) error {
	where := map[string]interface{}{
		"id":       docID,
		"agent_id": agentID,
	}
	update := map[string]interface{}{
		"chunk_count": chunkCount,
		"mtime":       mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
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

// TransitionStatus moves a document to the target status only if its
// current status is one of from. A zero-row update means another worker
// got there first; the caller decides whether that matters.
func (r *DocumentRepo) TransitionStatus(ctx context.Context, agentID, docID string, from []model.ProcessingStatus, to model.ProcessingStatus, errMsg string, mtime int64) (bool, error) {
	fromValues := make([]interface{}, 0, len(from))
	for _, s := range from {
		fromValues = append(fromValues, string(s))
	}
	where := map[string]interface{}{
		"id":        docID,
		"agent_id":  agentID,
		"status in": fromValues,
	}
	update := map[string]interface{}{
		"status": string(to),
		"error":  errMsg,
		"mtime":  mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return false, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *DocumentRepo) Delete(ctx context.Context, agentID, docID string) error {
	where := map[string]interface{}{
		"id":       docID,
		"agent_id": agentID,
	}
	sqlStr, args, err := builder.BuildDelete("documents", where)
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

// DeleteByKB removes every document row of one knowledge base. Deleting
// an empty knowledge base is not an error.
func (r *DocumentRepo) DeleteByKB(ctx context.Context, agentID, kbID string) error {
	where := map[string]interface{}{
		"agent_id":          agentID,
		"knowledge_base_id": kbID,
	}
	sqlStr, args, err := builder.BuildDelete("documents", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *DocumentRepo) CountByKB(ctx context.Context, agentID, kbID string) (int, error) {
	query, args := dbutil.Finalize(
		"SELECT COUNT(1) FROM documents WHERE agent_id = ? AND knowledge_base_id = ?",
		[]interface{}{agentID, kbID})
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
