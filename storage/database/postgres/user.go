package pgrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type dbUser struct {
	ID           string         `db:"id"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	Gender       string         `db:"gender"`
	Roles        pq.StringArray `db:"roles"`
	IsActive     bool           `db:"is_active"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    time.Time      `db:"last_login"`
}

func (du dbUser) unbox() user.User {
	active := du.IsActive
	return user.User{
		ID:           du.ID,
		FirstName:    du.FirstName,
		LastName:     du.LastName,
		Username:     du.Username,
		Email:        du.Email,
		Gender:       du.Gender,
		Roles:        du.Roles,
		IsActive:     &active,
		PasswordHash: du.PasswordHash,
		CreatedAt:    du.CreatedAt,
		UpdatedAt:    du.UpdatedAt,
		LastLogin:    du.LastLogin,
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	exclIDs := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		exclIDs = append(exclIDs, usr.ID)
	}

	check := func(field, value string, notUnique error) error {
		if value == "" {
			return nil
		}
		var count int
		q := fmt.Sprintf(`SELECT COUNT(*) FROM "user" WHERE %s = $1 AND NOT (id = ANY($2))`, field)
		if err := repo.db.GetContext(ctx, &count, q, value, pq.Array(exclIDs)); err != nil {
			return err
		}
		if count > 0 {
			return notUnique
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO "user" (id, first_name, last_name, username, email, gender, roles, is_active, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		usr.ID, usr.FirstName, usr.LastName, usr.Username, usr.Email, usr.Gender,
		pq.Array(usr.Roles), usr.Active(), usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		return user.User{}, err
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var where string
	var args []interface{}
	switch {
	case filter.ID != "":
		where, args = "id = $1", []interface{}{filter.ID}
	case filter.Username != "":
		where, args = "username = $1", []interface{}{filter.Username}
	case filter.Email != "":
		where, args = "email = $1", []interface{}{filter.Email}
	case filter.UsernameOrEmail != "":
		where, args = "(username = $1 OR email = $1)", []interface{}{filter.UsernameOrEmail}
	default:
		return user.User{}, user.ErrNotFound
	}

	var du dbUser
	if err := repo.db.GetContext(ctx, &du, `SELECT * FROM "user" WHERE `+where, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound)
	}
	return du.unbox(), nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	where := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + strings.ToLower(filter.Search) + "%")
		where = append(where, fmt.Sprintf(
			"(lower(first_name) LIKE %[1]s OR lower(last_name) LIKE %[1]s OR lower(username) LIKE %[1]s OR lower(email) LIKE %[1]s)", p))
	}
	if len(filter.Roles) > 0 {
		prefixes := make([]string, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			prefixes = append(prefixes, role+"%")
		}
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM unnest(roles) AS r WHERE r LIKE ANY(%s))", arg(pq.Array(prefixes))))
	}
	if filter.IsActive != nil {
		where = append(where, "is_active = "+arg(*filter.IsActive))
	}
	if !filter.CreatedFrom.IsZero() {
		where = append(where, "created_at >= "+arg(filter.CreatedFrom.UTC()))
	}
	if !filter.CreatedTo.IsZero() {
		where = append(where, "created_at <= "+arg(filter.CreatedTo.UTC()))
	}
	if filter.IDs != nil {
		where = append(where, "id = ANY("+arg(pq.Array(filter.IDs))+")")
	}

	q := `SELECT * FROM "user"`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += orderBy(ordering, "created_at ASC")

	var dus []dbUser
	if err := repo.db.SelectContext(ctx, &dus, q, args...); err != nil {
		return nil, err
	}
	users := make([]user.User, 0, len(dus))
	for _, du := range dus {
		users = append(users, du.unbox())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive ...*bool) (user.User, error) {
	set := []string{"first_name = :first_name", "last_name = :last_name", "username = :username",
		"email = :email", "gender = :gender", "updated_at = :updated_at"}
	params := map[string]interface{}{
		"id":         usr.ID,
		"first_name": usr.FirstName,
		"last_name":  usr.LastName,
		"username":   usr.Username,
		"email":      usr.Email,
		"gender":     usr.Gender,
		"updated_at": usr.UpdatedAt,
	}

	// only save set fields
	if usr.Roles != nil {
		set = append(set, "roles = :roles")
		params["roles"] = pq.Array(usr.Roles)
	}
	if usr.PasswordHash != nil {
		set = append(set, "password_hash = :password_hash")
		params["password_hash"] = usr.PasswordHash
	}
	if !usr.LastLogin.IsZero() {
		set = append(set, "last_login = :last_login")
		params["last_login"] = usr.LastLogin
	}
	if len(isActive) > 0 && isActive[0] != nil {
		set = append(set, "is_active = :is_active")
		params["is_active"] = *isActive[0]
	}

	q := `UPDATE "user" SET ` + strings.Join(set, ", ") + " WHERE id = :id"
	res, err := repo.db.NamedExecContext(ctx, q, params)
	if err != nil {
		return user.User{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return user.User{}, err
	} else if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = newRowID()
		now := time.Now().UTC()
		usr.CreatedAt, usr.UpdatedAt = now, now
		return repo.CreateUser(ctx, usr)
	}
	usr.UpdatedAt = time.Now().UTC()
	updated, err := repo.UpdateUser(ctx, usr, usr.IsActive)
	if err == user.ErrNotFound {
		return repo.CreateUser(ctx, usr)
	}
	return updated, err
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1)`, pq.Array(ids))
	return err
}
