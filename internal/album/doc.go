/*
Package album loads, validates and saves album files.

Every save writes two files. The album file (conventionally *.dyphal) is
what the generator reopens: title, description, footer, the selected
caption and property fields, the photo resolution and the source path of
each photo. The viewer file (the same name ending in .json) is what the
web template reads: title, description, footer, the metadata directory and
each photo's name, thumbnail and orientation.

Load checks a document against the field template of its albumVersion and
reports the first violation as a *ParseError. A viewer file opened by
mistake is recognised and reported as such.
*/
package album
