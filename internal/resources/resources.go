// Package resources lists the backend entities the dashboard manages, together with the
// capability each action needs and the fields its create/edit forms validate.
package resources

import (
	"errors"
	"sort"

	"inventory_admin/internal/models"
)

// ErrUnknownResource is returned when a resource name is not registered.
var ErrUnknownResource = errors.New("resources: unknown resource")

// Gate decides whether a capability set allows an action.
type Gate func(models.Capabilities) bool

// FieldKind selects the client-side check applied to a form field.
type FieldKind string

// Field kinds.
const (
	Text   FieldKind = "text"
	Email  FieldKind = "email"
	Number FieldKind = "number"
)

// Field is one input of a resource form.
type Field struct {
	Name     string    `json:"name" yaml:"name"`
	Kind     FieldKind `json:"kind" yaml:"kind"`
	Required bool      `json:"required" yaml:"required"`
}

// Resource describes one backend collection.
type Resource struct {
	Name       string  `json:"name" yaml:"name"`
	Path       string  `json:"path" yaml:"path"`
	SearchPath string  `json:"searchPath,omitempty" yaml:"searchPath,omitempty"`
	Paged      bool    `json:"paged" yaml:"paged"`
	Fields     []Field `json:"fields" yaml:"fields"`

	View   Gate `json:"-" yaml:"-"`
	Mutate Gate `json:"-" yaml:"-"`
	Delete Gate `json:"-" yaml:"-"`

	// Identify reads a row's identifier; RecordID when nil.
	Identify func(models.Record) (string, bool) `json:"-" yaml:"-"`
}

// ID returns the identifier of one of the resource's rows.
func (resource Resource) ID(record models.Record) (string, bool) {
	if resource.Identify != nil {
		return resource.Identify(record)
	}
	return RecordID(record)
}

// Access is what one session may do with a resource.
type Access struct {
	Resource  `yaml:",inline"`
	CanView   bool `json:"canView" yaml:"canView"`
	CanMutate bool `json:"canMutate" yaml:"canMutate"`
	CanDelete bool `json:"canDelete" yaml:"canDelete"`
}

// AccessFor evaluates the resource's gates against caps.
func (resource Resource) AccessFor(caps models.Capabilities) Access {
	return Access{
		Resource:  resource,
		CanView:   resource.View(caps),
		CanMutate: resource.Mutate(caps),
		CanDelete: resource.Delete(caps),
	}
}

var (
	catalog   Gate = func(c models.Capabilities) bool { return c.CanManageCatalog }
	inventory Gate = func(c models.Capabilities) bool { return c.CanManageInventory }
	orders    Gate = func(c models.Capabilities) bool { return c.CanManageOrders }
	users     Gate = func(c models.Capabilities) bool { return c.CanManageUsers }
	drivers   Gate = func(c models.Capabilities) bool { return c.CanManageDrivers }
	delivery  Gate = func(c models.Capabilities) bool { return c.CanViewDeliveries }
	dispatch  Gate = func(c models.Capabilities) bool { return c.CanUpdateDeliveries }
)

// deletable requires the general delete capability on top of gate.
func deletable(gate Gate) Gate {
	return func(c models.Capabilities) bool { return c.CanDelete && gate(c) }
}

func required(name string, kind FieldKind) Field { return Field{Name: name, Kind: kind, Required: true} }

func optional(name string, kind FieldKind) Field { return Field{Name: name, Kind: kind} }

var registry = map[string]Resource{
	"users": {
		Path:       "/users",
		SearchPath: "/users/search",
		Fields:     []Field{required("name", Text), required("email", Email), required("role", Text), optional("password", Text)},
		View:       users,
		Mutate:     users,
		Delete:     deletable(users),
	},
	"products": {
		Path:       "/products",
		SearchPath: "/products/search",
		Paged:      true,
		Fields:     []Field{required("name", Text), required("categoryId", Text), optional("price", Number), optional("unitId", Text)},
		View:       catalog,
		Mutate:     catalog,
		Delete:     deletable(catalog),
	},
	"categories": {
		Path:     "/categories",
		Fields:   []Field{required("name", Text), optional("description", Text)},
		View:     catalog,
		Mutate:   catalog,
		Delete:   deletable(catalog),
		Identify: CategoryID,
	},
	"product-units": {
		Path:   "/product-units",
		Fields: []Field{required("name", Text), optional("symbol", Text)},
		View:   catalog,
		Mutate: catalog,
		Delete: deletable(catalog),
	},
	"product-processes": {
		Path:   "/product-processes",
		Fields: []Field{required("name", Text), optional("description", Text)},
		View:   catalog,
		Mutate: catalog,
		Delete: deletable(catalog),
	},
	"mixtures": {
		Path:   "/mixtures",
		Fields: []Field{required("name", Text), required("productId", Text), required("quantity", Number)},
		View:   catalog,
		Mutate: catalog,
		Delete: deletable(catalog),
	},
	"inventories": {
		Path:   "/inventories",
		Fields: []Field{required("name", Text), optional("location", Text)},
		View:   inventory,
		Mutate: inventory,
		Delete: deletable(inventory),
	},
	"stock": {
		Path:   "/stock",
		Fields: []Field{required("productId", Text), required("inventoryId", Text), required("quantity", Number)},
		View:   inventory,
		Mutate: inventory,
		Delete: deletable(inventory),
	},
	"purchases": {
		Path:   "/purchases",
		Paged:  true,
		Fields: []Field{required("supplierId", Text), required("productId", Text), required("quantity", Number), optional("unitPrice", Number)},
		View:   inventory,
		Mutate: inventory,
		Delete: deletable(inventory),
	},
	"suppliers": {
		Path:       "/suppliers",
		SearchPath: "/suppliers/search",
		Fields:     []Field{required("name", Text), optional("email", Email), optional("phone", Text)},
		View:       inventory,
		Mutate:     inventory,
		Delete:     func(c models.Capabilities) bool { return c.CanDelete && c.CanDeleteSuppliers },
	},
	"customers": {
		Path:       "/customers",
		SearchPath: "/customers/search",
		Paged:      true,
		Fields:     []Field{required("name", Text), optional("email", Email), optional("phone", Text), optional("address", Text)},
		View:       orders,
		Mutate:     orders,
		Delete:     deletable(orders),
	},
	"orders": {
		Path:   "/orders",
		Paged:  true,
		Fields: []Field{required("customerId", Text), required("productId", Text), required("quantity", Number)},
		View:   orders,
		Mutate: orders,
		Delete: deletable(orders),
	},
	"drivers": {
		Path:   "/drivers",
		Fields: []Field{required("name", Text), required("email", Email), optional("phone", Text), optional("vehicle", Text)},
		View:   drivers,
		Mutate: drivers,
		Delete: deletable(drivers),
	},
	"deliveries": {
		Path:   "/deliveries",
		Paged:  true,
		Fields: []Field{required("orderId", Text), optional("driverId", Text), optional("status", Text)},
		View:   delivery,
		Mutate: dispatch,
		Delete: deletable(orders),
	},
}

// Lookup returns the named resource.
func Lookup(name string) (Resource, error) {
	resource, ok := registry[name]
	if !ok {
		return Resource{}, ErrUnknownResource
	}
	resource.Name = name
	return resource, nil
}

// All returns every registered resource ordered by name.
func All() []Resource {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	all := make([]Resource, 0, len(names))
	for _, name := range names {
		resource, _ := Lookup(name)
		all = append(all, resource)
	}
	return all
}
