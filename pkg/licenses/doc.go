// Package licenses turns the account licenses page into a list of package
// IDs and narrows it to the configured allow-list.
//
// Removable entries are rendered as anchors of the form
//
//	<a href="javascript:RemoveFreeLicense( 1324901, 'Some Game' );">Remove</a>
//
// and the first call argument is the package ID.
package licenses
