/*
Package safefile stages user-supplied file paths into race-free paths that
can be handed to external programs.

Handing exiftool or convert the path the user chose leaves a window between
checking that path and the tool opening it. Instead the generator:

 1. creates a private scratch directory (ScratchDir),
 2. opens the original file, fixing which inode is meant,
 3. links scratch/<logical name> to /proc/<pid>/fd/<fd>,
 4. gives every consumer the link, never the original path.

After step 2 nothing done to the original path can redirect a consumer to a
different file. Because the link name is the logical name of the photo in
the album, an existing link means two sources want the same album name;
Open reports that as a *CollisionError so the caller can offer a rename.

Dispose removes the link and closes the descriptor. It swallows errors from
each step independently and is idempotent.
*/
package safefile
