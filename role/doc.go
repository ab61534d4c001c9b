// Package role bundles a role name with a fully populated rights buffer and
// builds the three canonical privilege tiers.
//
// # Tiers
//
//   - [TierUser]: full access to the resources listed in
//     [Policy.FullAccessResources], the [Policy.UserDefaults] permissions on
//     every other resource.
//   - [TierAdmin]: every permission on every resource.
//   - [TierSuperAdmin]: same rights as admin. The decision engine bypasses
//     rights evaluation for this tier entirely; its buffer exists for display.
//
// # Architecture boundaries
//
// Roles address masks through the permission and resource catalogs with
// explicit Mask/SetMask accessors. Persistence of default rights belongs to
// the store package; this package only computes canonical values.
package role
