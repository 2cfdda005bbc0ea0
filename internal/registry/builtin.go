package registry

import "github.com/maruel/jsoncms/internal/entity"

// Builtin returns the entity types served when no definitions file is given.
func Builtin() []entity.Config {
	return []entity.Config{
		{
			Name: "Announcement",
			Path: "announcements.json",
			Fields: []entity.Field{
				{Name: "id", Label: "ID", Type: entity.FieldHidden},
				{Name: "date", Label: "Date", Type: entity.FieldDate},
				{Name: "content", Label: "Content", Type: entity.FieldTextarea},
			},
			SortKey: "id",
			Summary: []string{"content", "date"},
		},
		{
			Name: "Person",
			Path: "people.json",
			Fields: []entity.Field{
				{Name: "id", Label: "ID", Type: entity.FieldHidden},
				// Sorted by surname.
				{Name: "name", Label: "Name", Type: entity.FieldText, Compare: entity.CompareSecondToken},
				{Name: "type", Label: "Type", Type: entity.FieldPersonType},
				{Name: "email", Label: "Email (athena username)", Type: entity.FieldText},
				{Name: "url", Label: "Photo URL", Type: entity.FieldText},
				{Name: "www", Label: "Website URL", Type: entity.FieldText},
			},
			SortKey: "name",
			Summary: []string{"name", "type"},
		},
		{
			Name: "Example",
			Path: "examples.json",
			Fields: []entity.Field{
				{Name: "id", Label: "ID", Type: entity.FieldHidden},
				{Name: "title", Label: "Title", Type: entity.FieldText, Compare: entity.CompareSecondToken},
				{Name: "topic", Label: "Topic", Type: entity.FieldExampleTopic},
				{Name: "url", Label: "Example URL", Type: entity.FieldText},
				{Name: "desc", Label: "Description", Type: entity.FieldText},
			},
			SortKey: "title",
			Summary: []string{"title", "topic"},
		},
	}
}
