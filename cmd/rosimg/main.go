// SPDX-License-Identifier: MPL-2.0

// rosimg builds ROS development Docker images from a staged build context.
package main

func main() {
	Execute()
}
