// Package access decides which actor may perform which marketplace operation.
// Services call Authorize before touching data; handlers only resolve the Actor.
package access

import (
	"github.com/google/uuid"

	"github.com/ethoparts/marketplace-backend/pkg/enums"
	pkgerrors "github.com/ethoparts/marketplace-backend/pkg/errors"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) IsAdmin() bool  { return a.Role == enums.RoleAdmin }
func (a Actor) IsSeller() bool { return a.Role == enums.RoleSeller }
func (a Actor) IsBuyer() bool  { return a.Role == enums.RoleBuyer }

// Capability names a guarded operation.
type Capability string

const (
	CapOrderPlace                   Capability = "order.place"
	CapOrderList                    Capability = "order.list"
	CapOrderView                    Capability = "order.view"
	CapOrderUpdateStatus            Capability = "order.update_status"
	CapReceiptSubmit                Capability = "receipt.submit"
	CapReceiptListPending           Capability = "receipt.list_pending"
	CapReceiptReview                Capability = "receipt.review"
	CapCommissionList               Capability = "commission.list"
	CapCommissionStats              Capability = "commission.stats"
	CapCommissionPay                Capability = "commission.pay"
	CapCommissionPaymentListPending Capability = "commission_payment.list_pending"
	CapCommissionPaymentReview      Capability = "commission_payment.review"
	CapPaymentMethodManage          Capability = "payment_method.manage"
	CapSellerPaymentMethodManage    Capability = "seller_payment_method.manage"
	CapCatalogManageProducts        Capability = "catalog.manage_products"
	CapCatalogManageCategories      Capability = "catalog.manage_categories"
	CapCatalogReview                Capability = "catalog.review"
	CapAdminView                    Capability = "admin.view"
	CapSettingsManage               Capability = "settings.manage"
)

// Resource describes who owns the target of an operation. Zero value means
// the operation is not bound to a specific record.
type Resource struct {
	OwnerID   *uuid.UUID
	SellerIDs []uuid.UUID
}

// Owned builds a Resource owned by id.
func Owned(id uuid.UUID) Resource {
	return Resource{OwnerID: &id}
}

// OrderResource describes an order owned by buyerID with items from sellerIDs.
func OrderResource(buyerID uuid.UUID, sellerIDs []uuid.UUID) Resource {
	return Resource{OwnerID: &buyerID, SellerIDs: sellerIDs}
}

func (r Resource) ownedBy(id uuid.UUID) bool {
	return r.OwnerID != nil && *r.OwnerID == id
}

func (r Resource) hasSeller(id uuid.UUID) bool {
	for _, sellerID := range r.SellerIDs {
		if sellerID == id {
			return true
		}
	}
	return false
}

// Authorize returns a FORBIDDEN error unless the actor holds the capability
// for the resource.
func Authorize(actor Actor, capability Capability, resource Resource) error {
	if allowed(actor, capability, resource) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to "+string(capability))
}

// Can reports the same decision as Authorize without building an error.
func Can(actor Actor, capability Capability, resource Resource) bool {
	return allowed(actor, capability, resource)
}

func allowed(actor Actor, capability Capability, resource Resource) bool {
	if actor.UserID == uuid.Nil || !actor.Role.IsValid() {
		return false
	}

	switch capability {
	case CapOrderPlace:
		return actor.IsBuyer()
	case CapReceiptSubmit:
		return actor.IsBuyer() && resource.ownedBy(actor.UserID)
	case CapOrderList, CapCatalogReview:
		return true
	case CapOrderView:
		return actor.IsAdmin() || resource.ownedBy(actor.UserID) ||
			(actor.IsSeller() && resource.hasSeller(actor.UserID))
	case CapOrderUpdateStatus, CapReceiptReview:
		return actor.IsAdmin() || (actor.IsSeller() && resource.hasSeller(actor.UserID))
	case CapReceiptListPending, CapCommissionList, CapCommissionStats:
		return actor.IsAdmin() || actor.IsSeller()
	case CapCommissionPay:
		return actor.IsAdmin() || (actor.IsSeller() && resource.ownedBy(actor.UserID))
	case CapSellerPaymentMethodManage, CapCatalogManageProducts:
		if actor.IsAdmin() {
			return true
		}
		if !actor.IsSeller() {
			return false
		}
		return resource.OwnerID == nil || resource.ownedBy(actor.UserID)
	case CapCommissionPaymentListPending, CapCommissionPaymentReview, CapPaymentMethodManage,
		CapCatalogManageCategories, CapAdminView, CapSettingsManage:
		return actor.IsAdmin()
	default:
		return false
	}
}
