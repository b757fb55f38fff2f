package database

import (
	"fmt"

	"github.com/gocql/gocql"
)

// Schema is applied by Migrate. Rows of an order are reachable by id, by
// their group (created_at, name, user_id) and by payment intent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id timeuuid PRIMARY KEY,
		created_at timestamp,
		name text,
		drink_id text,
		drink_name text,
		sugar boolean,
		milk text,
		price double,
		quantity int,
		total_amount double,
		location text,
		received_order boolean,
		delivered boolean,
		ready boolean,
		method text,
		payment_method text,
		tax double,
		tip double,
		eta int,
		order_time text,
		user_id text,
		payment_intent_id text,
		status text
	)`,
	`CREATE TABLE IF NOT EXISTS orders_by_group (
		created_at timestamp,
		name text,
		user_id text,
		id timeuuid,
		PRIMARY KEY ((created_at, name, user_id), id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders_by_intent (
		payment_intent_id text,
		id timeuuid,
		PRIMARY KEY (payment_intent_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id text PRIMARY KEY,
		name text,
		email text,
		phone text,
		address text,
		avatar_url text,
		provider text,
		stripe_customer_id text,
		updated_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS payment_methods (
		user_id text,
		id text,
		stripe_payment_method_id text,
		stripe_customer_id text,
		brand text,
		last4 text,
		created_at timestamp,
		PRIMARY KEY (user_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS payment_method_defaults (
		user_id text PRIMARY KEY,
		method_id text
	)`,
	`CREATE TABLE IF NOT EXISTS contacts (
		order_id text PRIMARY KEY,
		name text,
		address text,
		phone text,
		email text,
		created_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		order_id text PRIMARY KEY,
		user_id text,
		stars int,
		comment text,
		created_at timestamp
	)`,
}

func Migrate(session *gocql.Session) error {
	for _, stmt := range Schema {
		if err := session.Query(stmt).Exec(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
