package tools

// ChangeDocumentPrompt returns instructions for writing change records
func ChangeDocumentPrompt() string {
	return `You are editing a map graph through feature changes.

A change record has the form:
  {"type": "ADD" | "REMOVE", "kind": "Node" | "Edge" | "Area" | "Line" | "Point" | "Relation", "id": <number>, "after": {...}, "before": {...}}

Rules:
- An ADD carries the new values of only the fields you want to change in "after". Omit a field to leave it untouched; an empty object or list sets it to empty.
- A REMOVE deletes the whole entity and needs no "after".
- "before" is optional. When present it holds the values you expect the fields to have now. Pass use_store=true to let the service fill it from the base graph.
- Locations may be written as {"lat": 52.52, "lon": 13.405}, as "52.52,13.405", in degrees-minutes-seconds or as an MGRS string.
- Relation members are written as {"members": [{"id": 5, "kind": "Edge", "role": "outer"}], "excluded": [...]}.

Use merge_feature_changes to combine changes to the same entity. Conflicting edits are listed under "errors" with the field and tag keys involved; fix the records and merge again.`
}
