// Package orgs manages the organization lifecycle: creation with asynchronous
// provisioning, permanent invite links, membership grants and role changes.
//
// Manager enforces the business rules the store cannot express on its own:
// every member keeps at least one role, roles are only assigned within their
// own organization (or are global), and global roles are never modified or
// deleted. Rule violations come back as *DomainError and leave storage
// untouched.
//
//	codec, _ := orgs.NewInviteCodec(secret)
//	mgr := orgs.NewManager(store, rbac.MemberRoleID, codec, logger, metrics,
//		orgs.WithProvisioner(publisher))
//
//	link, _ := mgr.CreatePermanentInviteLink(ctx, orgID)
//	res, _ := mgr.RedeemInvite(ctx, userID, link)
//	// res.Outcome is ImmediateSuccess or RequiresConfirmation
package orgs
