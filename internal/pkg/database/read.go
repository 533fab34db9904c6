package database

import (
	"context"

	"github.com/anicoll/dash480-integration/internal/pkg/model"
)

// LoadPanels reconstructs every persisted panel, its pages and slot
// bindings. Classifications are stored alongside bindings so a restart does
// not re-resolve capabilities (bind-time classification is immutable).
func (db *Database) LoadPanels(ctx context.Context) ([]*model.Panel, error) {
	const panelQuery = `
	SELECT node_name, home_title, temp_entity, relay1, relay2, relay3
	FROM Panel
	ORDER BY node_name;
	`
	rows, err := db.conn.Query(ctx, panelQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var panels []*model.Panel
	for rows.Next() {
		p := &model.Panel{}
		if err := rows.Scan(&p.NodeName, &p.HomeTitle, &p.TempEntity, &p.RelayEntities[0], &p.RelayEntities[1], &p.RelayEntities[2]); err != nil {
			return nil, err
		}
		panels = append(panels, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range panels {
		if err := db.loadPages(ctx, p); err != nil {
			return nil, err
		}
	}
	return panels, nil
}

func (db *Database) loadPages(ctx context.Context, p *model.Panel) error {
	const pageQuery = `
	SELECT page_order, title
	FROM Page
	WHERE node_name = $1
	ORDER BY page_order;
	`
	rows, err := db.conn.Query(ctx, pageQuery, p.NodeName)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var order int
		var title string
		if err := rows.Scan(&order, &title); err != nil {
			return err
		}
		if _, err := p.AddPage(order, title); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return db.loadSlots(ctx, p)
}

func (db *Database) loadSlots(ctx context.Context, p *model.Panel) error {
	const slotQuery = `
	SELECT page_order, slot_index, entity_id, class
	FROM Slot
	WHERE node_name = $1
	ORDER BY page_order, slot_index;
	`
	rows, err := db.conn.Query(ctx, slotQuery, p.NodeName)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var order, index int
		var entityID, class string
		if err := rows.Scan(&order, &index, &entityID, &class); err != nil {
			return err
		}
		ref := model.EntityRef{ID: entityID, Class: model.Class(class)}
		if err := p.BindEntity(order, index, ref); err != nil {
			return err
		}
	}
	return rows.Err()
}
