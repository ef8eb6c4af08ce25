package db

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/ether/lastupdated-go/lib/db/migrations"
	mysql2 "github.com/go-sql-driver/mysql"
)

type MysqlDB struct {
	sqlStore
	options MySQLOptions
}

type MySQLOptions struct {
	Username string
	Password string
	Port     int
	Host     string
	Database string
	Charset  string
}

func (o MySQLOptions) DSN() string {
	mySQLConf := mysql2.NewConfig()
	mySQLConf.User = o.Username
	mySQLConf.Passwd = o.Password
	mySQLConf.Net = "tcp"
	mySQLConf.Addr = fmt.Sprintf("%s:%d", o.Host, o.Port)
	mySQLConf.DBName = o.Database
	mySQLConf.ParseTime = true
	if o.Charset != "" {
		mySQLConf.Params = map[string]string{"charset": o.Charset}
	}
	return mySQLConf.FormatDSN()
}

func NewMySQLDB(options MySQLOptions) (*MysqlDB, error) {
	sqlDb, err := sql.Open("mysql", options.DSN())
	if err != nil {
		return nil, err
	}

	sqlDb.SetMaxOpenConns(25)
	sqlDb.SetMaxIdleConns(5)

	migrationManager := migrations.NewMigrationManager(sqlDb, migrations.DialectMySQL)
	if err := migrationManager.Run(); err != nil {
		sqlDb.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &MysqlDB{
		sqlStore: sqlStore{
			sqlDB:   sqlDb,
			builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
			upsert: `ON DUPLICATE KEY UPDATE
			value = VALUES(value),
			updated_at = CURRENT_TIMESTAMP`,
		},
		options: options,
	}, nil
}

var _ DataStore = (*MysqlDB)(nil)
