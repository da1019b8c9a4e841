package domain

// Field keys used in Session.Fields. They double as mapstructure tags on Profile.
const (
	FieldName          = "name"
	FieldAge           = "age"
	FieldGender        = "gender"
	FieldPhotoID       = "photo_id"
	FieldPhotoUniqueID = "photo_unique_id"
	FieldEducation     = "education"
	FieldWantsNews     = "wants_news"
)

// Slash commands understood by the engine.
const (
	CommandStart    = "start"
	CommandHelp     = "help"
	CommandFillForm = "fillform"
	CommandCancel   = "cancel"
	CommandShowData = "showdata"
)
