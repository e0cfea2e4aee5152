package host

import "encoding/json"

// Action is a single row mutation submitted to the host. Actions are
// encoded in the host's positional wire form:
//
//	["AddRecord", tableId, null, {colId: value}]
//	["UpdateRecord", tableId, rowId, {colId: value}]
//
// A batch of actions is applied atomically by the host.
type Action struct {
	Name    string
	TableID string
	RowID   *int64
	Fields  map[string]any
}

// AddRecord builds an append action. The host assigns the row id.
func AddRecord(tableID string, fields map[string]any) Action {
	return Action{Name: "AddRecord", TableID: tableID, Fields: fields}
}

// UpdateRecord builds an update action for an existing row.
func UpdateRecord(tableID string, rowID int64, fields map[string]any) Action {
	return Action{Name: "UpdateRecord", TableID: tableID, RowID: &rowID, Fields: fields}
}

// MarshalJSON encodes the action positionally.
func (a Action) MarshalJSON() ([]byte, error) {
	var rowID any
	if a.RowID != nil {
		rowID = *a.RowID
	}
	fields := a.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return json.Marshal([]any{a.Name, a.TableID, rowID, fields})
}
