package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/3bbing/friends-pyramid/internal/engine"
	"github.com/3bbing/friends-pyramid/internal/pyramid"
)

type lobbyRow struct {
	TeamID    string         `gorm:"primaryKey;size:64"`
	Data      datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (lobbyRow) TableName() string { return "lobbies" }

type teamRow struct {
	ID           string `gorm:"primaryKey;size:64"`
	Name         string `gorm:"size:60;not null"`
	NameKey      string `gorm:"size:60;not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	InviteToken  string `gorm:"size:64;not null"`
	CreatedAt    time.Time
}

func (teamRow) TableName() string { return "teams" }

type cardRow struct {
	ID        uint   `gorm:"primaryKey"`
	TeamID    string `gorm:"size:64;index"`
	Question  string `gorm:"size:80;not null"`
	OptionA   string `gorm:"size:30;not null"`
	OptionB   string `gorm:"size:30;not null"`
	CreatedAt time.Time
}

func (cardRow) TableName() string { return "custom_cards" }

// Postgres stores each lobby as one jsonb row and serializes access with
// SELECT ... FOR UPDATE inside a transaction.
type Postgres struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewPostgres(dsn string, log *zap.Logger) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&lobbyRow{}, &teamRow{}, &cardRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("postgres store ready")
	return &Postgres{db: db, log: log}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func (p *Postgres) Update(ctx context.Context, teamID string, fn Mutator) (engine.Lobby, error) {
	var result engine.Lobby

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := p.lockRow(tx, teamID)
		if err != nil {
			return err
		}

		l, out, err := cycle(teamID, row.Data, fn)
		result = l
		if err != nil || out == nil {
			return err
		}
		return tx.Model(&lobbyRow{}).
			Where("team_id = ?", teamID).
			Updates(map[string]any{"data": datatypes.JSON(out), "updated_at": time.Now()}).Error
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

// lockRow selects the lobby row for update, creating the default record on
// first access.
func (p *Postgres) lockRow(tx *gorm.DB, teamID string) (lobbyRow, error) {
	var row lobbyRow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("team_id = ?", teamID).
		Take(&row).Error
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return row, fmt.Errorf("lock lobby %s: %w", teamID, err)
	}

	raw, err := encodeLobby(engine.NewLobby(teamID))
	if err != nil {
		return row, err
	}
	seed := lobbyRow{TeamID: teamID, Data: datatypes.JSON(raw)}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return row, fmt.Errorf("create lobby %s: %w", teamID, err)
	}
	p.log.Debug("lobby created", zap.String("team_id", teamID))

	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("team_id = ?", teamID).
		Take(&row).Error
	if err != nil {
		return row, fmt.Errorf("lock lobby %s: %w", teamID, err)
	}
	return row, nil
}

func (p *Postgres) CreateTeam(ctx context.Context, t Team) error {
	row := teamRow{
		ID:           t.ID,
		Name:         t.Name,
		NameKey:      nameKey(t.Name),
		PasswordHash: t.PasswordHash,
		InviteToken:  t.InviteToken,
		CreatedAt:    t.CreatedAt,
	}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrTeamNameTaken
		}
		return fmt.Errorf("create team: %w", err)
	}
	return nil
}

func (p *Postgres) GetTeam(ctx context.Context, id string) (Team, error) {
	return p.findTeam(ctx, "id = ?", id)
}

func (p *Postgres) FindTeam(ctx context.Context, identifier string) (Team, error) {
	t, err := p.findTeam(ctx, "id = ?", identifier)
	if errors.Is(err, ErrNotFound) {
		return p.findTeam(ctx, "name_key = ?", nameKey(identifier))
	}
	return t, err
}

func (p *Postgres) findTeam(ctx context.Context, query string, arg any) (Team, error) {
	var row teamRow
	err := p.db.WithContext(ctx).Where(query, arg).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Team{}, ErrNotFound
	}
	if err != nil {
		return Team{}, fmt.Errorf("find team: %w", err)
	}
	return Team{
		ID:           row.ID,
		Name:         row.Name,
		PasswordHash: row.PasswordHash,
		InviteToken:  row.InviteToken,
		CreatedAt:    row.CreatedAt,
	}, nil
}

func (p *Postgres) AddCard(ctx context.Context, teamID string, c pyramid.Card) error {
	row := cardRow{TeamID: teamID, Question: c.Question, OptionA: c.OptionA, OptionB: c.OptionB}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("add card: %w", err)
	}
	return nil
}

func (p *Postgres) ListCards(ctx context.Context, teamID string) ([]pyramid.Card, error) {
	var rows []cardRow
	q := p.db.WithContext(ctx).Order("id")
	if teamID == "" {
		q = q.Where("team_id = ''")
	} else {
		q = q.Where("team_id = '' OR team_id = ?", teamID)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}

	cards := make([]pyramid.Card, 0, len(rows))
	for _, r := range rows {
		cards = append(cards, pyramid.Card{Question: r.Question, OptionA: r.OptionA, OptionB: r.OptionB})
	}
	return cards, nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
