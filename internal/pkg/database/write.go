package database

import (
	"context"

	"github.com/anicoll/dash480-integration/internal/pkg/model"
)

// SavePanel upserts a panel's full configuration: attributes, pages and
// slot bindings. Pages removed from the model disappear via the rewrite.
func (db *Database) SavePanel(ctx context.Context, p *model.Panel) error {
	tx, err := db.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upsertPanelSQL = `
	INSERT INTO Panel (node_name, home_title, temp_entity, relay1, relay2, relay3)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (node_name) DO UPDATE SET
		home_title = EXCLUDED.home_title,
		temp_entity = EXCLUDED.temp_entity,
		relay1 = EXCLUDED.relay1,
		relay2 = EXCLUDED.relay2,
		relay3 = EXCLUDED.relay3;
	`
	if _, err := tx.Exec(ctx, upsertPanelSQL, p.NodeName, p.HomeTitle, p.TempEntity, p.RelayEntities[0], p.RelayEntities[1], p.RelayEntities[2]); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM Page WHERE node_name = $1;`, p.NodeName); err != nil {
		return err
	}
	const insertPageSQL = `
	INSERT INTO Page (node_name, page_order, title) VALUES ($1, $2, $3);
	`
	const insertSlotSQL = `
	INSERT INTO Slot (node_name, page_order, slot_index, entity_id, class)
	VALUES ($1, $2, $3, $4, $5);
	`
	for _, page := range p.Pages() {
		if _, err := tx.Exec(ctx, insertPageSQL, p.NodeName, page.Order, page.Title); err != nil {
			return err
		}
		for i := range page.Slots {
			entity := page.Slots[i].Entity
			if entity == nil {
				continue
			}
			if _, err := tx.Exec(ctx, insertSlotSQL, p.NodeName, page.Order, i, entity.ID, string(entity.Class)); err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

// DeletePanel removes the panel and, through the cascades, its pages and
// slots. Callers stop the panel's service first.
func (db *Database) DeletePanel(ctx context.Context, nodeName string) error {
	_, err := db.conn.Exec(ctx, `DELETE FROM Panel WHERE node_name = $1;`, nodeName)
	return err
}
