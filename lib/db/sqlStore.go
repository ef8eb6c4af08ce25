package db

import (
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
)

// sqlStore holds the statements shared by the SQL backends. Dialects differ in
// their placeholder format and upsert clause only.
type sqlStore struct {
	sqlDB   *sql.DB
	builder sq.StatementBuilderType
	upsert  string
}

func (d sqlStore) GetState(documentId string, key string) ([]byte, error) {
	resultedSQL, args, err := d.builder.
		Select("value").
		From("engine_state").
		Where(sq.Eq{"document_id": documentId, "state_key": key}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var value string
	err = d.sqlDB.QueryRow(resultedSQL, args...).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(StateNotFoundError)
		}
		return nil, err
	}
	return []byte(value), nil
}

func (d sqlStore) SaveState(documentId string, key string, value []byte) error {
	resultedSQL, args, err := d.builder.
		Insert("engine_state").
		Columns("document_id", "state_key", "value").
		Values(documentId, key, string(value)).
		Suffix(d.upsert).
		ToSql()
	if err != nil {
		return err
	}
	_, err = d.sqlDB.Exec(resultedSQL, args...)
	return err
}

func (d sqlStore) RemoveState(documentId string, key string) error {
	resultedSQL, args, err := d.builder.
		Delete("engine_state").
		Where(sq.Eq{"document_id": documentId, "state_key": key}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = d.sqlDB.Exec(resultedSQL, args...)
	return err
}

func (d sqlStore) RemoveDocumentState(documentId string) error {
	resultedSQL, args, err := d.builder.
		Delete("engine_state").
		Where(sq.Eq{"document_id": documentId}).
		ToSql()
	if err != nil {
		return err
	}
	result, err := d.sqlDB.Exec(resultedSQL, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New(DocumentNotFoundError)
	}
	return nil
}

func (d sqlStore) GetDocumentIds() ([]string, error) {
	resultedSQL, args, err := d.builder.
		Select("DISTINCT document_id").
		From("engine_state").
		OrderBy("document_id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	query, err := d.sqlDB.Query(resultedSQL, args...)
	if err != nil {
		return nil, err
	}
	defer query.Close()

	ids := make([]string, 0)
	for query.Next() {
		var id string
		if err := query.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, query.Err()
}

func (d sqlStore) Close() error {
	return d.sqlDB.Close()
}
