package fixture

import "github.com/jules-labs/eventcore/serializer"

// RegisterTypes wires WidgetCreated/WidgetRenamed into reg so a Store
// built with reg can serialize and deserialize widget events.
func RegisterTypes(reg *serializer.Registry) {
	serializer.RegisterEventType[WidgetCreated](reg, "WidgetCreated")
	serializer.RegisterEventType[WidgetRenamed](reg, "WidgetRenamed")
}

// RegisterUpcastDemo additionally wires WidgetRenamedLegacy and its
// upcast rule to WidgetRenamed, for tests exercising the upcast path.
func RegisterUpcastDemo(reg *serializer.Registry) {
	serializer.RegisterEventType[WidgetRenamedLegacy](reg, "WidgetRenamedLegacy")
	serializer.RegisterUpcast(reg, "WidgetRenamedLegacy", func(old WidgetRenamedLegacy) WidgetRenamed {
		return WidgetRenamed{ID: old.ID, Name: old.NewName}
	})
}
